package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/models"
	"kada-commute/internal/session"
)

// Confirmer задает пользователю вопрос да/нет и ждет ответа.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc позволяет использовать функцию как Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

type HistoryService struct {
	api      AttendanceAPI
	observer Observer
}

func NewHistoryService(api AttendanceAPI) *HistoryService {
	return &HistoryService{api: api}
}

// SetObserver задает функцию, которая вызывается, когда началась загрузка.
func (s *HistoryService) SetObserver(o Observer) {
	s.observer = o
}

// Open показывает историю и загружает ее.
func (s *HistoryService) Open(ctx context.Context, sess *session.Session) {
	if sess.User() == nil {
		return
	}
	sess.OpenHistory()
	s.Load(ctx, sess)
}

// Load загружает историю пользователя. Без пользователя ничего не делает.
// Результат применяется, только если за время запроса не началась
// более новая загрузка.
func (s *HistoryService) Load(ctx context.Context, sess *session.Session) {
	user := sess.User()
	if user == nil {
		return
	}

	seq := sess.BeginHistoryLoad()
	if s.observer != nil {
		s.observer(sess)
	}

	records, err := s.api.History(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"chat_id":     sess.ChatID(),
			"employee_id": user.ID.String(),
		}).Warn("Failed to load history")
	}

	if !sess.FinishHistoryLoad(seq, records, err) {
		logrus.WithField("chat_id", sess.ChatID()).Debug("Stale history response dropped")
	}
}

// OpenEdit открывает изменение записи за дату из последней загрузки.
func (s *HistoryService) OpenEdit(sess *session.Session, date string) error {
	return sess.OpenEdit(date)
}

// SaveEdit отправляет новое время выбранного поля. Пустое время
// блокируется алертом без запроса к API.
func (s *HistoryService) SaveEdit(ctx context.Context, sess *session.Session) Notice {
	target := sess.EditTarget()
	if target == nil {
		return Notice{}
	}
	user := sess.User()
	if user == nil {
		return Notice{}
	}

	if !sess.HasDate(target.Date) {
		sess.CloseEdit()
		return Toast(TextRecordGone)
	}
	if !target.Field.Valid() {
		return Alert(TextSelectField)
	}
	if target.Time == "" {
		return Alert(TextEnterTime)
	}

	err := s.api.UpdateRecord(ctx, commuteapi.UpdateRecordRequest{
		EmployeeID: user.ID,
		Date:       target.Date,
		Field:      target.Field,
		Value:      NormalizeEditValue(target.Time),
	})

	log := logrus.WithFields(logrus.Fields{
		"chat_id":     sess.ChatID(),
		"employee_id": user.ID.String(),
		"date":        target.Date,
		"field":       string(target.Field),
	})

	if err != nil {
		log.WithError(err).Warn("Failed to update record")
		if _, ok := commuteapi.IsAPIError(err); ok {
			return Toast(TextUpdateFailed)
		}
		return Toast(TextError)
	}

	log.Info("Record updated")
	sess.CloseEdit()
	s.Load(ctx, sess)
	return Toast(TextRecordUpdated)
}

// CancelEdit закрывает изменение без сохранения.
func (s *HistoryService) CancelEdit(sess *session.Session) {
	sess.CloseEdit()
}

// SetEditTime разбирает и сохраняет новое время открытой записи.
func (s *HistoryService) SetEditTime(sess *session.Session, raw string) error {
	value, err := ParseEditClock(raw)
	if err != nil {
		return err
	}
	return sess.SetEditTime(value)
}

// SelectField выбирает поле записи для изменения.
func (s *HistoryService) SelectField(sess *session.Session, field models.Field) error {
	return sess.SelectEditField(field)
}

// ConfirmDelete удаляет запись за дату, если пользователь подтвердил.
// Отказ не вызывает никаких запросов.
func (s *HistoryService) ConfirmDelete(ctx context.Context, sess *session.Session, date string, confirm Confirmer) Notice {
	user := sess.User()
	if user == nil {
		return Notice{}
	}

	if !confirm.Confirm(ctx, DeletePrompt(date)) {
		return Notice{}
	}

	err := s.api.DeleteRecord(ctx, commuteapi.DeleteRecordRequest{
		EmployeeID: user.ID,
		Date:       date,
	})

	log := logrus.WithFields(logrus.Fields{
		"chat_id":     sess.ChatID(),
		"employee_id": user.ID.String(),
		"date":        date,
	})

	if err != nil {
		log.WithError(err).Warn("Failed to delete record")
		if _, ok := commuteapi.IsAPIError(err); ok {
			return Toast(TextDeleteFailed)
		}
		return Toast(TextError)
	}

	log.Info("Record deleted")
	s.Load(ctx, sess)
	return Toast(TextRecordDeleted)
}

// Records загружает всю историю пользователя для выгрузки. Состояние
// сессии не меняется.
func (s *HistoryService) Records(ctx context.Context, sess *session.Session) (*models.User, []models.AttendanceRecord, error) {
	user := sess.User()
	if user == nil {
		return nil, nil, session.ErrNotLoggedIn
	}
	records, err := s.api.History(ctx, user.ID)
	if err != nil {
		return user, nil, fmt.Errorf("история %s: %w", user.ID.String(), err)
	}
	return user, records, nil
}
