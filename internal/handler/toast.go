package handler

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type toast struct {
	messageID int
	text      string
	timer     *time.Timer
}

// Toaster показывает короткие уведомления: сообщение удаляется само через
// duration. В чате виден не больше чем один тост, новый сразу убирает старый.
// Запросы к Telegram идут без блокировки.
type Toaster struct {
	sender   Sender
	duration time.Duration

	mu    sync.Mutex
	shown map[int64]*toast
	seq   map[int64]uint64 // номер последнего Show в чате
}

func NewToaster(sender Sender, duration time.Duration) *Toaster {
	return &Toaster{
		sender:   sender,
		duration: duration,
		shown:    make(map[int64]*toast),
		seq:      make(map[int64]uint64),
	}
}

func (t *Toaster) Show(chatID int64, text string) {
	t.mu.Lock()
	prev, hadPrev := t.shown[chatID]
	if hadPrev {
		prev.timer.Stop()
		delete(t.shown, chatID)
	}
	t.seq[chatID]++
	seq := t.seq[chatID]
	t.mu.Unlock()

	if hadPrev {
		t.delete(chatID, prev.messageID)
	}

	sent, err := t.sender.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send toast")
		return
	}

	current := &toast{messageID: sent.MessageID, text: text}

	t.mu.Lock()
	// пока отправляли, в чате показали более новый тост
	if t.seq[chatID] != seq {
		t.mu.Unlock()
		t.delete(chatID, current.messageID)
		return
	}
	current.timer = time.AfterFunc(t.duration, func() {
		t.expire(chatID, current)
	})
	t.shown[chatID] = current
	t.mu.Unlock()
}

// Visible возвращает текст тоста, который сейчас виден в чате.
func (t *Toaster) Visible(chatID int64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.shown[chatID]
	if !ok {
		return "", false
	}
	return cur.text, true
}

func (t *Toaster) expire(chatID int64, expired *toast) {
	t.mu.Lock()
	// тост уже заменен новым
	if t.shown[chatID] != expired {
		t.mu.Unlock()
		return
	}
	delete(t.shown, chatID)
	t.mu.Unlock()

	t.delete(chatID, expired.messageID)
}

func (t *Toaster) delete(chatID int64, messageID int) {
	if _, err := t.sender.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Warn("Failed to delete toast")
	}
}
