package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/session"
)

var ErrEmptyName = errors.New("имя не может быть пустым")

type SessionService struct {
	api   AttendanceAPI
	store *session.Store
}

func NewSessionService(api AttendanceAPI, store *session.Store) *SessionService {
	return &SessionService{api: api, store: store}
}

// Session возвращает сессию чата.
func (s *SessionService) Session(chatID int64) *session.Session {
	return s.store.Get(chatID)
}

// Login ищет сотрудника по имени. При ошибке текст показывается на экране
// входа, экран не меняется.
func (s *SessionService) Login(ctx context.Context, chatID int64, name string) error {
	sess := s.store.Get(chatID)

	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		sess.SetLoginError(TextEnterName)
		return ErrEmptyName
	}

	sess.ClearLoginError()

	user, err := s.api.Login(ctx, name)
	if err != nil {
		if commuteapi.IsTransportError(err) {
			sess.SetLoginError(TextServerUnavailable)
		} else {
			sess.SetLoginError(TextEmployeeNotFound)
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"chat_id": chatID,
			"name":    name,
		}).Warn("Login failed")
		return fmt.Errorf("вход %q: %w", name, err)
	}

	sess.SignIn(*user)
	logrus.WithFields(logrus.Fields{
		"chat_id":     chatID,
		"employee_id": user.ID.String(),
	}).Info("User logged in")
	return nil
}

// Logout забывает пользователя чата. Поток логов не трогается.
func (s *SessionService) Logout(chatID int64) {
	sess := s.store.Get(chatID)
	if user := sess.User(); user != nil {
		logrus.WithFields(logrus.Fields{
			"chat_id":     chatID,
			"employee_id": user.ID.String(),
		}).Info("User logged out")
	}
	sess.SignOut()
}
