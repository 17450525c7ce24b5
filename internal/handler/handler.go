package handler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"kada-commute/internal/config"
	"kada-commute/internal/models"
	"kada-commute/internal/service"
	"kada-commute/internal/session"
	"kada-commute/internal/view"
)

// Sender - часть tgbotapi.BotAPI, через которую бот пишет в чаты
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	sender     Sender
	sessions   *service.SessionService
	attendance *service.AttendanceService
	history    *service.HistoryService
	console    *service.ConsoleService
	toaster    *Toaster
	prompts    *prompts
	config     *config.BotConfig
	now        func() time.Time

	mu          sync.Mutex
	screens     map[int64]int // сообщение с экраном чата
	renderLocks map[int64]*sync.Mutex

	consoleDirty atomic.Bool
	wg           sync.WaitGroup
}

func NewHandler(
	sender Sender,
	sessions *service.SessionService,
	attendance *service.AttendanceService,
	history *service.HistoryService,
	console *service.ConsoleService,
	cfg *config.BotConfig,
) *Handler {
	h := &Handler{
		sender:      sender,
		sessions:    sessions,
		attendance:  attendance,
		history:     history,
		console:     console,
		toaster:     NewToaster(sender, cfg.ToastDuration),
		prompts:     newPrompts(),
		config:      cfg,
		now:         time.Now,
		screens:     make(map[int64]int),
		renderLocks: make(map[int64]*sync.Mutex),
	}

	// ⏳ на кнопке и "Загрузка..." показываются до ответа API
	attendance.SetObserver(h.render)
	history.SetObserver(h.render)

	console.OnLine(func(models.ConsoleLine) {
		h.consoleDirty.Store(true)
	})

	return h
}

// HandleUpdates читает обновления, пока канал не закрыт или ctx не отменен.
// Каждое обновление обрабатывается в своей горутине: ожидание подтверждения
// в одном чате не задерживает другие чаты и нажатие, которое это
// подтверждение закрывает. После возврата новых обработчиков не будет,
// и Wait можно вызывать.
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			h.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer h.wg.Done()
				h.handleUpdate(ctx, update)
			}(update)
		}
	}
}

// Wait ждет завершения начатых обработчиков.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Обработка callback query (для inline кнопок)
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	h.handleMessage(ctx, update.Message)
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From != nil {
		logrus.Infof("[%s] %s", message.From.UserName, message.Text)
	}

	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	h.handleText(ctx, h.sessions.Session(message.Chat.ID), message.Text)
}

// handleText разбирает текст в зависимости от того, какой ввод ждет сессия.
func (h *Handler) handleText(ctx context.Context, sess *session.Session, text string) {
	chatID := sess.ChatID()

	switch sess.Input() {
	case session.InputManualTime:
		if err := h.attendance.SetManualTime(sess, text); err != nil {
			h.inputError(chatID, err)
			return
		}
		sess.Expect(session.InputNone)

	case session.InputManualDate:
		if err := h.attendance.SetManualDate(sess, text, h.now()); err != nil {
			h.inputError(chatID, err)
			return
		}
		sess.Expect(session.InputNone)

	case session.InputEditTime:
		if err := h.history.SetEditTime(sess, text); err != nil {
			h.inputError(chatID, err)
			return
		}

	default:
		if sess.User() == nil {
			h.login(ctx, sess, text)
			return
		}
		h.reply(chatID, TextUseButtons)
		return
	}

	h.render(sess)
}

func (h *Handler) inputError(chatID int64, err error) {
	if errors.Is(err, session.ErrManualModeOff) {
		h.toaster.Show(chatID, TextManualOff)
		return
	}
	h.toaster.Show(chatID, "❌ "+err.Error())
}

func (h *Handler) login(ctx context.Context, sess *session.Session, name string) {
	if err := h.sessions.Login(ctx, sess.ChatID(), name); err != nil {
		logrus.WithError(err).WithField("chat_id", sess.ChatID()).Debug("Login rejected")
	}
	h.render(sess)
}

// handleCallbackQuery обрабатывает inline кнопки
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		h.answer(callback, "", false)
		return
	}
	chatID := callback.Message.Chat.ID

	action, err := view.ParseAction(callback.Data)
	if err != nil {
		logrus.WithField("data", callback.Data).Warn("Unknown callback data")
		h.answer(callback, "", false)
		return
	}

	if action.Kind == view.KindConfirm {
		h.prompts.resolve(action.Arg)
		h.answer(callback, "", false)
		return
	}

	// кнопка нажата на экране чата, дальше редактируем это сообщение
	h.attachScreen(chatID, callback.Message.MessageID)

	// Сохранение может ответить алертом, остальные отвечают сразу
	if action.Kind != view.KindEditSave {
		h.answer(callback, "", false)
	}

	sess := h.sessions.Session(chatID)
	notice := h.dispatch(ctx, sess, action)

	if action.Kind == view.KindEditSave {
		if notice.Kind == service.NoticeAlert {
			h.answer(callback, notice.Text, true)
			notice = service.Notice{}
		} else {
			h.answer(callback, "", false)
		}
	}

	h.notify(chatID, notice)
	h.render(sess)
}

// dispatch - единая точка обработки нажатий
func (h *Handler) dispatch(ctx context.Context, sess *session.Session, a view.Action) service.Notice {
	chatID := sess.ChatID()

	switch a.Kind {
	case view.KindCheckIn:
		return h.attendance.CheckIn(ctx, sess)
	case view.KindCheckOut:
		return h.attendance.CheckOut(ctx, sess)

	case view.KindManual:
		if sess.User() != nil {
			h.attendance.ToggleManual(sess, h.now())
		}
	case view.KindManualTime:
		return h.expectManual(sess, session.InputManualTime, TextSendTime)
	case view.KindManualDate:
		return h.expectManual(sess, session.InputManualDate, TextSendDate)

	case view.KindHistory:
		h.history.Open(ctx, sess)
	case view.KindHistoryClose:
		sess.CloseHistory()
	case view.KindRefresh:
		// экран перерисуется с текущим временем

	case view.KindLogout:
		h.sessions.Logout(chatID)
	case view.KindExport:
		return h.sendExport(ctx, sess)

	case view.KindEdit:
		if err := h.history.OpenEdit(sess, a.Arg); err != nil {
			if errors.Is(err, session.ErrNotLoggedIn) {
				return service.Notice{}
			}
			return service.Toast(TextRecordNotFound)
		}
		h.reply(chatID, TextSendEditTime)
	case view.KindEditField:
		if err := h.history.SelectField(sess, models.Field(a.Arg)); err != nil {
			return service.Alert(service.TextSelectField)
		}
	case view.KindEditSave:
		return h.history.SaveEdit(ctx, sess)
	case view.KindEditCancel:
		h.history.CancelEdit(sess)

	case view.KindDelete:
		return h.history.ConfirmDelete(ctx, sess, a.Arg, service.ConfirmFunc(
			func(ctx context.Context, prompt string) bool {
				return h.confirm(ctx, chatID, prompt)
			},
		))
	}

	return service.Notice{}
}

func (h *Handler) expectManual(sess *session.Session, in session.Input, prompt string) service.Notice {
	if manual, _, _ := sess.ManualEntry(); !manual {
		return service.Toast(TextManualOff)
	}
	sess.Expect(in)
	h.reply(sess.ChatID(), prompt)
	return service.Notice{}
}

// notify показывает итог действия. Алерт вне callback отправляется
// отдельным сообщением, которое не удаляется само.
func (h *Handler) notify(chatID int64, n service.Notice) {
	switch n.Kind {
	case service.NoticeToast:
		h.toaster.Show(chatID, n.Text)
	case service.NoticeAlert:
		h.reply(chatID, "⚠️ "+n.Text)
	}
}

func (h *Handler) answer(callback *tgbotapi.CallbackQuery, text string, alert bool) {
	cfg := tgbotapi.NewCallback(callback.ID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callback.ID, text)
	}
	if _, err := h.sender.Request(cfg); err != nil {
		logrus.WithError(err).Warn("Failed to answer callback")
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}

// ---------- экран чата ----------

func (h *Handler) attachScreen(chatID int64, messageID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.screens[chatID] = messageID
}

// detachScreen забывает текущий экран: следующая отрисовка пришлет новое
// сообщение внизу чата.
func (h *Handler) detachScreen(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.screens, chatID)
}

func (h *Handler) screen(chatID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.screens[chatID]
}

func (h *Handler) renderLock(chatID int64) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.renderLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		h.renderLocks[chatID] = l
	}
	return l
}

// render перерисовывает экран чата по текущему состоянию сессии.
func (h *Handler) render(sess *session.Session) {
	chatID := sess.ChatID()
	lock := h.renderLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	scr := view.Page(sess.Snapshot(), h.now())

	if messageID := h.screen(chatID); messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, scr.Text, keyboard(scr))
		_, err := h.sender.Send(edit)
		if err == nil || isNotModified(err) {
			return
		}
		logrus.WithError(err).WithField("chat_id", chatID).Warn("Failed to edit screen, sending a new one")
	}

	msg := tgbotapi.NewMessage(chatID, scr.Text)
	if len(scr.Keyboard) > 0 {
		msg.ReplyMarkup = keyboard(scr)
	}
	sent, err := h.sender.Send(msg)
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send screen")
		return
	}
	h.attachScreen(chatID, sent.MessageID)
}

func keyboard(scr view.Screen) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(scr.Keyboard))
	for _, r := range scr.Keyboard {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
