package handler

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"kada-commute/internal/service"
	"kada-commute/internal/view"
)

// ConsoleRefresh - как часто подписанные чаты получают новые строки.
// Telegram ограничивает частоту правок одного сообщения.
const ConsoleRefresh = time.Second

func (h *Handler) consoleCommand(chatID int64, args string) {
	switch args {
	case "", "on":
		if err := h.console.Subscribe(chatID); err != nil {
			logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to subscribe to console")
			h.reply(chatID, service.TextError)
			return
		}
		messageID, ok := h.sendConsole(chatID)
		if !ok {
			return
		}
		if err := h.console.SetMessageID(chatID, messageID); err != nil {
			logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to store console message")
		}
		h.toaster.Show(chatID, TextConsoleOn)
	case "off":
		if err := h.console.Unsubscribe(chatID); err != nil {
			logrus.WithError(err).WithField("chat_id", chatID).Warn("Failed to unsubscribe from console")
		}
		h.reply(chatID, TextConsoleOff)
	default:
		h.reply(chatID, TextConsoleUsage)
	}
}

// RunConsole раз в interval пересылает подписанным чатам хвост консоли,
// если с прошлого раза появились строки.
func (h *Handler) RunConsole(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.consoleDirty.Swap(false) {
				h.FlushConsole()
			}
		}
	}
}

// FlushConsole обновляет сообщение консоли в каждом подписанном чате.
func (h *Handler) FlushConsole() {
	subs, err := h.console.Subscribers()
	if err != nil {
		logrus.WithError(err).Error("Failed to list console subscribers")
		return
	}
	if len(subs) == 0 {
		return
	}

	scr, err := h.consoleScreen()
	if err != nil {
		logrus.WithError(err).Error("Failed to read console tail")
		return
	}

	for _, sub := range subs {
		if sub.MessageID != 0 {
			_, err := h.sender.Send(tgbotapi.NewEditMessageText(sub.ChatID, sub.MessageID, scr.Text))
			if err == nil || isNotModified(err) {
				continue
			}
			logrus.WithError(err).WithField("chat_id", sub.ChatID).Warn("Failed to edit console, sending a new one")
		}

		messageID, ok := h.sendConsole(sub.ChatID)
		if !ok {
			continue
		}
		if err := h.console.SetMessageID(sub.ChatID, messageID); err != nil {
			logrus.WithError(err).WithField("chat_id", sub.ChatID).Error("Failed to store console message")
		}
	}
}

func (h *Handler) consoleScreen() (view.Screen, error) {
	lines, err := h.console.Tail(h.config.ConsoleTail)
	if err != nil {
		return view.Screen{}, err
	}
	return view.Console(lines, h.console.Connected()), nil
}

func (h *Handler) sendConsole(chatID int64) (int, bool) {
	scr, err := h.consoleScreen()
	if err != nil {
		logrus.WithError(err).Error("Failed to read console tail")
		return 0, false
	}
	sent, err := h.sender.Send(tgbotapi.NewMessage(chatID, scr.Text))
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send console")
		return 0, false
	}
	return sent.MessageID, true
}
