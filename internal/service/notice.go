package service

import (
	"context"
	"fmt"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/models"
	"kada-commute/internal/session"
)

// Тексты для пользователя
const (
	TextEnterName          = "Пожалуйста, введите имя."
	TextEmployeeNotFound   = "Сотрудник не найден."
	TextServerUnavailable  = "Не удалось связаться с сервером."
	TextEnterTime          = "Пожалуйста, укажите время."
	TextSelectField        = "Выберите, что изменить: приход или уход."
	TextCheckedIn          = "✅ Приход отмечен."
	TextCheckedOut         = "✅ Уход отмечен."
	TextCheckInFailed      = "❌ Не удалось отметить приход: "
	TextCheckOutFailed     = "❌ Не удалось отметить уход: "
	TextError              = "❌ Произошла ошибка."
	TextRecordUpdated      = "✅ Запись изменена."
	TextUpdateFailed       = "❌ Ошибка изменения записи"
	TextRecordDeleted      = "✅ Запись удалена."
	TextRecordGone         = "❌ Записи за эту дату больше нет."
	TextDeleteFailed       = "❌ Ошибка удаления записи"
	TextStreamConnected    = "Поток логов подключен."
	TextStreamDisconnected = "Поток логов отключен."
)

// DeletePrompt - вопрос перед удалением записи.
func DeletePrompt(date string) string {
	return fmt.Sprintf("⚠️ Удалить запись за %s?", date)
}

type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	// NoticeToast исчезает сам через несколько секунд
	NoticeToast
	// NoticeAlert требует, чтобы пользователь его закрыл
	NoticeAlert
)

// Notice - что показать пользователю по итогам действия
type Notice struct {
	Kind NoticeKind
	Text string
}

func (n Notice) Empty() bool {
	return n.Kind == NoticeNone
}

func Toast(text string) Notice {
	return Notice{Kind: NoticeToast, Text: text}
}

func Alert(text string) Notice {
	return Notice{Kind: NoticeAlert, Text: text}
}

// AttendanceAPI - операции внешнего API, которые нужны сервисам
type AttendanceAPI interface {
	Login(ctx context.Context, name string) (*models.User, error)
	CheckIn(ctx context.Context, req commuteapi.CheckInRequest) error
	CheckOut(ctx context.Context, req commuteapi.CheckOutRequest) error
	History(ctx context.Context, employeeID models.EmployeeID) ([]models.AttendanceRecord, error)
	UpdateRecord(ctx context.Context, req commuteapi.UpdateRecordRequest) error
	DeleteRecord(ctx context.Context, req commuteapi.DeleteRecordRequest) error
}

// Observer вызывается, когда состояние сессии изменилось посреди долгой
// операции (кнопка заблокирована, история загружается).
type Observer func(sess *session.Session)
