package service

import (
	"errors"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrInvalidTime = errors.New("неверный формат времени. Используйте чч:мм, чч.мм или чч-мм")
	ErrInvalidDate = errors.New("неверный формат даты. Используйте ГГГГ-ММ-ДД, ДД.ММ.ГГГГ или ДД.ММ")
)

var clockFormats = []string{
	"15:04",
	"15.04",
	"15-04",
}

var dateFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"02-01-2006",
	"02.01",
	"02-01",
}

// ParseClock приводит введенное время к виду ЧЧ:ММ.
func ParseClock(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, format := range clockFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", ErrInvalidTime
}

// ParseEditClock принимает то же, что ParseClock, и дополнительно ЧЧ:ММ:СС,
// секунды сохраняются.
func ParseEditClock(value string) (string, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("15:04:05", value); err == nil {
		return t.Format("15:04:05"), nil
	}
	return ParseClock(value)
}

// ParseDate приводит дату к ГГГГ-ММ-ДД. Без года берется год now.
func ParseDate(value string, now time.Time) (string, error) {
	value = strings.TrimSpace(value)
	for _, format := range dateFormats {
		t, err := time.Parse(format, value)
		if err != nil {
			continue
		}
		if !strings.Contains(format, "2006") {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
		}
		return t.Format(DateLayout), nil
	}
	return "", ErrInvalidDate
}

// NormalizeEditValue добавляет секунды к значению ЧЧ:ММ. Значения другой
// длины отправляются как есть.
func NormalizeEditValue(value string) string {
	if len(value) == 5 {
		return value + ":00"
	}
	return value
}
