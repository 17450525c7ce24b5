package service

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/models"
	"kada-commute/internal/repository"
)

// LogStreamer - источник строк консоли
type LogStreamer interface {
	StreamLogs(ctx context.Context, h commuteapi.StreamHandler) error
}

// ConsoleService читает поток логов API и складывает строки в консоль.
// Поток общий для всего процесса и не зависит от входа пользователей.
type ConsoleService struct {
	repo repository.ConsoleRepository

	mu        sync.RWMutex
	connected bool
	listeners []func(models.ConsoleLine)
}

func NewConsoleService(repo repository.ConsoleRepository) *ConsoleService {
	return &ConsoleService{repo: repo}
}

// OnLine регистрирует получателя новых строк. Вызывается из горутины потока.
func (s *ConsoleService) OnLine(fn func(models.ConsoleLine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Run держит одно соединение с потоком логов. Переподключения нет:
// после обрыва в консоль пишется строка об отключении, а ошибка только
// логируется. Возвращает управление, когда поток закончился.
func (s *ConsoleService) Run(ctx context.Context, streamer LogStreamer) {
	err := streamer.StreamLogs(ctx, commuteapi.StreamHandler{
		OnOpen: func() {
			s.setConnected(true)
			s.append(TextStreamConnected)
		},
		OnMessage: func(line string) {
			s.append(line)
		},
	})

	wasConnected := s.Connected()
	s.setConnected(false)

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		logrus.Info("Log stream stopped")
		return
	}

	logrus.WithError(err).Warn("Log stream closed")
	if wasConnected {
		s.append(TextStreamDisconnected)
	}
}

func (s *ConsoleService) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *ConsoleService) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

// Append добавляет строку в консоль и раздает ее получателям.
func (s *ConsoleService) Append(text string) (models.ConsoleLine, error) {
	line := models.ConsoleLine{Text: text}
	if err := s.repo.Append(&line); err != nil {
		return line, err
	}

	s.mu.RLock()
	listeners := append([]func(models.ConsoleLine){}, s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(line)
	}
	return line, nil
}

func (s *ConsoleService) append(text string) {
	if _, err := s.Append(text); err != nil {
		logrus.WithError(err).Error("Failed to store console line")
	}
}

// Tail возвращает последние n строк консоли.
// Lines возвращает число сохраненных строк консоли.
func (s *ConsoleService) Lines() (int64, error) {
	return s.repo.Count()
}

func (s *ConsoleService) Tail(n int) ([]models.ConsoleLine, error) {
	return s.repo.Tail(n)
}

func (s *ConsoleService) Subscribe(chatID int64) error {
	return s.repo.Subscribe(chatID)
}

func (s *ConsoleService) Unsubscribe(chatID int64) error {
	return s.repo.Unsubscribe(chatID)
}

func (s *ConsoleService) IsSubscribed(chatID int64) (bool, error) {
	return s.repo.IsSubscribed(chatID)
}

func (s *ConsoleService) SetMessageID(chatID int64, messageID int) error {
	return s.repo.SetMessageID(chatID, messageID)
}

func (s *ConsoleService) Subscribers() ([]models.ConsoleSubscriber, error) {
	return s.repo.Subscribers()
}
