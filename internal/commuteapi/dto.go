package commuteapi

import "kada-commute/internal/models"

type LoginRequest struct {
	Name string `json:"name"`
}

// CheckInRequest: Time и Date равны nil в автоматическом режиме,
// тогда сервер сам ставит текущее время.
type CheckInRequest struct {
	Name       string            `json:"name"`
	Location   string            `json:"location"`
	EmployeeID models.EmployeeID `json:"employee_id"`
	Time       *string           `json:"time"` // HH:MM, секунды добавляет сервер
	Date       *string           `json:"date"` // YYYY-MM-DD
}

type CheckOutRequest struct {
	Name       string            `json:"name"`
	EmployeeID models.EmployeeID `json:"employee_id"`
	Time       *string           `json:"time"`
	Date       *string           `json:"date"`
}

type UpdateRecordRequest struct {
	EmployeeID models.EmployeeID `json:"employee_id"`
	Date       string            `json:"date"`
	Field      models.Field      `json:"field"`
	Value      string            `json:"value"`
}

type DeleteRecordRequest struct {
	EmployeeID models.EmployeeID `json:"employee_id"`
	Date       string            `json:"date"`
}
