package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/session"
)

type AttendanceService struct {
	api      AttendanceAPI
	observer Observer
}

func NewAttendanceService(api AttendanceAPI) *AttendanceService {
	return &AttendanceService{api: api}
}

// SetObserver задает функцию, которая вызывается, когда кнопка заблокирована.
func (s *AttendanceService) SetObserver(o Observer) {
	s.observer = o
}

// CheckIn отмечает приход. Без пользователя ничего не делает.
func (s *AttendanceService) CheckIn(ctx context.Context, sess *session.Session) Notice {
	return s.mark(ctx, sess, session.ActionCheckIn)
}

// CheckOut отмечает уход. Без пользователя ничего не делает.
func (s *AttendanceService) CheckOut(ctx context.Context, sess *session.Session) Notice {
	return s.mark(ctx, sess, session.ActionCheckOut)
}

func (s *AttendanceService) mark(ctx context.Context, sess *session.Session, action session.Action) Notice {
	user := sess.User()
	if user == nil {
		return Notice{}
	}

	if !sess.Begin(action) {
		return Notice{}
	}
	defer sess.End(action)

	if s.observer != nil {
		s.observer(sess)
	}

	manual, at, date := sess.ManualEntry()

	var timePtr, datePtr *string
	if manual {
		if at == "" {
			return Toast(TextEnterTime)
		}
		timePtr = &at
		if date != "" {
			datePtr = &date
		}
	}

	log := logrus.WithFields(logrus.Fields{
		"chat_id":     sess.ChatID(),
		"employee_id": user.ID.String(),
		"action":      string(action),
		"manual":      manual,
	})

	var err error
	if action == session.ActionCheckIn {
		err = s.api.CheckIn(ctx, commuteapi.CheckInRequest{
			Name:       user.Name,
			Location:   user.Location,
			EmployeeID: user.ID,
			Time:       timePtr,
			Date:       datePtr,
		})
	} else {
		err = s.api.CheckOut(ctx, commuteapi.CheckOutRequest{
			Name:       user.Name,
			EmployeeID: user.ID,
			Time:       timePtr,
			Date:       datePtr,
		})
	}

	if err != nil {
		log.WithError(err).Warn("Attendance mark failed")
		apiErr, ok := commuteapi.IsAPIError(err)
		if !ok {
			return Toast(TextError)
		}
		if action == session.ActionCheckIn {
			return Toast(TextCheckInFailed + apiErr.Message())
		}
		return Toast(TextCheckOutFailed + apiErr.Message())
	}

	log.Info("Attendance marked")
	if action == session.ActionCheckIn {
		return Toast(TextCheckedIn)
	}
	return Toast(TextCheckedOut)
}

// ToggleManual переключает ручной ввод. При включении дата - сегодня.
func (s *AttendanceService) ToggleManual(sess *session.Session, now time.Time) bool {
	return sess.ToggleManual(now.Format(DateLayout))
}

// SetManualTime разбирает и сохраняет время для ручного режима.
func (s *AttendanceService) SetManualTime(sess *session.Session, raw string) error {
	value, err := ParseClock(raw)
	if err != nil {
		return err
	}
	return sess.SetManualTime(value)
}

// SetManualDate разбирает и сохраняет дату для ручного режима.
func (s *AttendanceService) SetManualDate(sess *session.Session, raw string, now time.Time) error {
	value, err := ParseDate(raw, now)
	if err != nil {
		return err
	}
	return sess.SetManualDate(value)
}
