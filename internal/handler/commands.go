package handler

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"kada-commute/internal/service"
	"kada-commute/internal/session"
)

const (
	TextUseButtons     = "Используйте кнопки под сообщением или /help."
	TextManualOff      = "Сначала включите ручной ввод: /manual"
	TextSendTime       = "🕒 Отправьте время сообщением (чч:мм)."
	TextSendDate       = "📅 Отправьте дату сообщением (ГГГГ-ММ-ДД или ДД.ММ)."
	TextSendEditTime   = "✏️ Отправьте новое время сообщением (чч:мм или чч:мм:сс)."
	TextRecordNotFound = "Запись не найдена. Обновите историю."
	TextAlreadyIn      = "Вы уже вошли. Чтобы сменить сотрудника, используйте /logout."
	TextLoginFirst     = "Сначала войдите: отправьте свое имя."
	TextExportFailed   = "❌ Не удалось выгрузить историю."
	TextConsoleOn      = "🖥 Консоль включена. Новые строки появятся в сообщении выше."
	TextConsoleOff     = "Консоль выключена."
	TextConsoleUsage   = "Использование: /console on или /console off"
	TextUnknownCommand = "❌ Неизвестная команда. Используйте /help для списка команд."
)

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	args := strings.TrimSpace(message.CommandArguments())
	chatID := message.Chat.ID
	sess := h.sessions.Session(chatID)

	switch command {
	case "start":
		h.detachScreen(chatID)
		h.render(sess)
	case "help":
		h.sendHelpMessage(chatID)

	case "login":
		h.loginCommand(ctx, sess, args)
	case "logout":
		h.sessions.Logout(chatID)
		h.detachScreen(chatID)
		h.render(sess)

	// Отметки
	case "in":
		h.detachScreen(chatID)
		h.notify(chatID, h.attendance.CheckIn(ctx, sess))
		h.render(sess)
	case "out":
		h.detachScreen(chatID)
		h.notify(chatID, h.attendance.CheckOut(ctx, sess))
		h.render(sess)
	case "manual":
		if !h.requireUser(sess) {
			return
		}
		h.attendance.ToggleManual(sess, h.now())
		h.detachScreen(chatID)
		h.render(sess)
	case "time":
		h.manualCommand(sess, args, session.InputManualTime, TextSendTime)
	case "date":
		h.manualCommand(sess, args, session.InputManualDate, TextSendDate)

	// История
	case "history":
		if !h.requireUser(sess) {
			return
		}
		h.detachScreen(chatID)
		h.history.Open(ctx, sess)
		h.render(sess)
	case "export":
		if !h.requireUser(sess) {
			return
		}
		h.notify(chatID, h.sendExport(ctx, sess))

	case "console":
		h.consoleCommand(chatID, args)

	default:
		h.reply(chatID, TextUnknownCommand)
	}
}

func (h *Handler) requireUser(sess *session.Session) bool {
	if sess.User() != nil {
		return true
	}
	h.reply(sess.ChatID(), TextLoginFirst)
	return false
}

func (h *Handler) loginCommand(ctx context.Context, sess *session.Session, name string) {
	if sess.User() != nil {
		h.reply(sess.ChatID(), TextAlreadyIn)
		return
	}
	h.detachScreen(sess.ChatID())
	if name == "" {
		sess.Expect(session.InputName)
		h.reply(sess.ChatID(), service.TextEnterName)
		return
	}
	h.login(ctx, sess, name)
}

// manualCommand сохраняет значение из аргумента команды, а без аргумента
// ждет его следующим сообщением.
func (h *Handler) manualCommand(sess *session.Session, args string, in session.Input, prompt string) {
	if !h.requireUser(sess) {
		return
	}
	if manual, _, _ := sess.ManualEntry(); !manual {
		h.toaster.Show(sess.ChatID(), TextManualOff)
		return
	}
	if args == "" {
		sess.Expect(in)
		h.reply(sess.ChatID(), prompt)
		return
	}

	var err error
	if in == session.InputManualTime {
		err = h.attendance.SetManualTime(sess, args)
	} else {
		err = h.attendance.SetManualDate(sess, args, h.now())
	}
	if err != nil {
		h.inputError(sess.ChatID(), err)
		return
	}
	h.render(sess)
}

func (h *Handler) sendHelpMessage(chatID int64) {
	helpText := `📖 *Доступные команды:*

*Вход:*
/start - Показать главный экран
/login [имя] - Войти по имени сотрудника
/logout - Выйти

*Отметки:*
/in - Отметить приход
/out - Отметить уход
/manual - Включить/выключить ручной ввод времени
/time [чч:мм] - Время для ручного ввода
/date [ГГГГ-ММ-ДД] - Дата для ручного ввода

*История:*
/history - История посещений
/export - Выгрузить историю в Excel

*Консоль:*
/console on - Показывать поток логов сервера
/console off - Не показывать поток логов

💡 *Форматы времени:* 09:30, 9.30, 09-30
💡 *Форматы даты:* 2026-10-18, 18.10.2026, 18.10`

	msg := tgbotapi.NewMessage(chatID, helpText)
	msg.ParseMode = "Markdown"
	if _, err := h.sender.Send(msg); err != nil {
		logrus.WithError(err).Error("Failed to send help message")
	}
}
