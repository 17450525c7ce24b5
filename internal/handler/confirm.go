package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kada-commute/internal/view"
)

// prompts - вопросы да/нет, на которые ждут ответа горутины обработчиков
type prompts struct {
	mu      sync.Mutex
	pending map[string]chan bool
}

func newPrompts() *prompts {
	return &prompts{pending: make(map[string]chan bool)}
}

func (p *prompts) add(token string, answer chan bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[token] = answer
}

func (p *prompts) remove(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, token)
}

// resolve принимает аргумент кнопки "<token>:y" или "<token>:n".
// false - вопрос уже закрыт или токен неизвестен.
func (p *prompts) resolve(arg string) bool {
	token, answer, _ := strings.Cut(arg, ":")

	p.mu.Lock()
	ch, ok := p.pending[token]
	p.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- answer == "y":
		return true
	default:
		return false
	}
}

// confirm отправляет вопрос с кнопками и блокируется до ответа. Таймаут и
// отмена контекста считаются отказом. После ответа вопрос удаляется.
func (h *Handler) confirm(ctx context.Context, chatID int64, prompt string) bool {
	token := uuid.NewString()
	answer := make(chan bool, 1)
	h.prompts.add(token, answer)
	defer h.prompts.remove(token)

	scr := view.Confirm(prompt, token)
	msg := tgbotapi.NewMessage(chatID, scr.Text)
	msg.ReplyMarkup = keyboard(scr)

	sent, err := h.sender.Send(msg)
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send confirmation")
		return false
	}
	defer func() {
		if _, err := h.sender.Request(tgbotapi.NewDeleteMessage(chatID, sent.MessageID)); err != nil {
			logrus.WithError(err).WithField("chat_id", chatID).Warn("Failed to delete confirmation")
		}
	}()

	timer := time.NewTimer(h.config.ConfirmTimeout)
	defer timer.Stop()

	select {
	case ok := <-answer:
		return ok
	case <-timer.C:
		logrus.WithField("chat_id", chatID).Info("Confirmation timed out")
		return false
	case <-ctx.Done():
		return false
	}
}
