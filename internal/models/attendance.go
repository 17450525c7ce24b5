package models

// Field - какое время записи редактируется
type Field string

const (
	FieldCheckIn  Field = "checkin"
	FieldCheckOut Field = "checkout"
)

func (f Field) Valid() bool {
	return f == FieldCheckIn || f == FieldCheckOut
}

// AttendanceRecord - одна запись посещаемости (одна на сотрудника и дату)
type AttendanceRecord struct {
	Date         string  `json:"date"`
	CheckInTime  *string `json:"checkin_time"`
	CheckOutTime *string `json:"checkout_time"`
}

// CheckIn возвращает время прихода или "" если его нет.
func (r AttendanceRecord) CheckIn() string {
	if r.CheckInTime == nil {
		return ""
	}
	return *r.CheckInTime
}

// CheckOut возвращает время ухода или "" если его нет.
func (r AttendanceRecord) CheckOut() string {
	if r.CheckOutTime == nil {
		return ""
	}
	return *r.CheckOutTime
}
