// Package rudate форматирует даты по-русски, как их показывает ru-RU локаль:
// "18 октября 2026, воскресенье".
package rudate

import (
	"fmt"
	"time"
)

// месяцы в родительном падеже
var months = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

var weekdays = [...]string{
	"воскресенье", "понедельник", "вторник", "среда",
	"четверг", "пятница", "суббота",
}

// Long - "18 октября 2026, воскресенье"
func Long(t time.Time) string {
	return fmt.Sprintf("%d %s %d, %s", t.Day(), Month(t.Month()), t.Year(), Weekday(t.Weekday()))
}

// Short - "18 октября"
func Short(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), Month(t.Month()))
}

func Month(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return months[m-1]
}

func Weekday(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdays[d]
}
