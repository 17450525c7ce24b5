// Package view строит экраны из снимка состояния сессии. Функции не
// обращаются к сети и к Telegram: на входе session.State, на выходе Screen.
package view

import (
	"fmt"
	"strings"
	"time"

	"kada-commute/internal/models"
	"kada-commute/internal/session"
	"kada-commute/pkg/rudate"
)

// HistoryLimit - сколько записей истории помещается на экран
const HistoryLimit = 31

const (
	TextHistoryLoading = "⏳ Загрузка..."
	TextHistoryEmpty   = "Записей нет."
	TextHistoryFailed  = "❌ Не удалось загрузить историю."
	TextNoValue        = "-"
)

type Button struct {
	Label string
	Data  string
}

// Screen - текст сообщения и inline клавиатура под ним
type Screen struct {
	Text     string
	Keyboard [][]Button
}

func button(label string, a Action) Button {
	return Button{Label: label, Data: a.Encode()}
}

func (s *Screen) add(row ...Button) {
	s.Keyboard = append(s.Keyboard, row)
}

// Page собирает экран чата целиком: вход или главный экран с историей
// и изменением записи, если они открыты.
func Page(st session.State, now time.Time) Screen {
	if st.View != session.ViewDashboard || st.User == nil {
		return Login(st)
	}

	page := Dashboard(st, now)
	if st.HistoryOpen {
		h := History(st)
		page.Text += "\n\n" + h.Text
		page.Keyboard = append(page.Keyboard, h.Keyboard...)
	}
	if st.Edit != nil {
		e := Edit(st)
		page.Text += "\n\n" + e.Text
		page.Keyboard = append(page.Keyboard, e.Keyboard...)
	}
	return page
}

func Login(st session.State) Screen {
	var b strings.Builder
	b.WriteString("👋 Учет рабочего времени\n\n")
	b.WriteString("Отправьте свое имя сообщением, чтобы войти.")
	if st.LoginError != "" {
		b.WriteString("\n\n❌ " + st.LoginError)
	}
	return Screen{Text: b.String()}
}

// Greeting - приветствие главного экрана
func Greeting(name string) string {
	return fmt.Sprintf("Добро пожаловать, %s!", name)
}

func Dashboard(st session.State, now time.Time) Screen {
	var b strings.Builder
	b.WriteString("👋 " + Greeting(st.User.Name) + "\n")
	if st.User.Location != "" {
		b.WriteString("📍 " + st.User.Location + "\n")
	}
	b.WriteString("\n🕒 " + now.Format("15:04:05") + "\n")
	b.WriteString("📅 " + rudate.Long(now) + "\n")

	if st.Manual {
		b.WriteString("\n✍️ Ручной ввод")
		b.WriteString("\nВремя: " + orPlaceholder(st.ManualTime, "не указано"))
		b.WriteString("\nДата: " + orPlaceholder(st.ManualDate, "сегодня"))
	} else {
		b.WriteString("\n⚙️ Время отмечается автоматически")
	}

	scr := Screen{Text: b.String()}

	in, out := "🟢 Приход", "🔴 Уход"
	if st.Busy[session.ActionCheckIn] {
		in = "⏳ Приход"
	}
	if st.Busy[session.ActionCheckOut] {
		out = "⏳ Уход"
	}
	scr.add(button(in, Action{Kind: KindCheckIn}), button(out, Action{Kind: KindCheckOut}))

	if st.Manual {
		scr.add(
			button("🕒 Время", Action{Kind: KindManualTime}),
			button("📅 Дата", Action{Kind: KindManualDate}),
			button("✖️ Авто", Action{Kind: KindManual}),
		)
	} else {
		scr.add(button("✍️ Ручной ввод", Action{Kind: KindManual}))
	}

	scr.add(
		button("📋 История", Action{Kind: KindHistory}),
		button("🔄 Обновить", Action{Kind: KindRefresh}),
	)
	scr.add(button("🚪 Выйти", Action{Kind: KindLogout}))
	return scr
}

func History(st session.State) Screen {
	scr := Screen{}
	var b strings.Builder
	b.WriteString("📋 История посещений\n")

	switch st.HistoryStatus {
	case session.HistoryIdle, session.HistoryLoading:
		b.WriteString(TextHistoryLoading)
	case session.HistoryEmpty:
		b.WriteString(TextHistoryEmpty)
	case session.HistoryFailed:
		b.WriteString(TextHistoryFailed)
	case session.HistoryLoaded:
		records := st.History
		if len(records) > HistoryLimit {
			records = records[:HistoryLimit]
		}
		for _, r := range records {
			b.WriteString("\n" + Row(r))
			scr.add(
				button("✏️ "+r.Date, Action{Kind: KindEdit, Arg: r.Date}),
				button("🗑️ "+r.Date, Action{Kind: KindDelete, Arg: r.Date}),
			)
		}
		if rest := len(st.History) - len(records); rest > 0 {
			b.WriteString(fmt.Sprintf("\n… и еще %d. Полная история: /export", rest))
		}
	}

	scr.Text = b.String()
	scr.add(
		button("📥 Excel", Action{Kind: KindExport}),
		button("✖️ Закрыть", Action{Kind: KindHistoryClose}),
	)
	return scr
}

// Row - строка истории: дата, приход, уход. Пустое время показывается как "-".
func Row(r models.AttendanceRecord) string {
	return fmt.Sprintf("%s | приход %s | уход %s",
		r.Date,
		orPlaceholder(r.CheckIn(), TextNoValue),
		orPlaceholder(r.CheckOut(), TextNoValue),
	)
}

func Edit(st session.State) Screen {
	e := st.Edit
	scr := Screen{}

	var b strings.Builder
	b.WriteString("✏️ Изменение записи за " + e.Date + "\n")
	b.WriteString("Поле: " + FieldName(e.Field) + "\n")
	b.WriteString("Время: " + orPlaceholder(e.Time, "не указано") + "\n")
	b.WriteString("Отправьте новое время сообщением (чч:мм).")
	scr.Text = b.String()

	in, out := "Приход", "Уход"
	if e.Field == models.FieldCheckIn {
		in = "✅ " + in
	}
	if e.Field == models.FieldCheckOut {
		out = "✅ " + out
	}
	scr.add(
		button(in, Action{Kind: KindEditField, Arg: string(models.FieldCheckIn)}),
		button(out, Action{Kind: KindEditField, Arg: string(models.FieldCheckOut)}),
	)
	scr.add(
		button("💾 Сохранить", Action{Kind: KindEditSave}),
		button("✖️ Отмена", Action{Kind: KindEditCancel}),
	)
	return scr
}

func FieldName(f models.Field) string {
	switch f {
	case models.FieldCheckIn:
		return "приход"
	case models.FieldCheckOut:
		return "уход"
	}
	return "не выбрано"
}

// Confirm - вопрос да/нет; ответ приходит действием KindConfirm с токеном.
func Confirm(prompt, token string) Screen {
	scr := Screen{Text: prompt}
	scr.add(
		button("✅ Да", Action{Kind: KindConfirm, Arg: token + ":y"}),
		button("❌ Нет", Action{Kind: KindConfirm, Arg: token + ":n"}),
	)
	return scr
}

// Console - последние строки консоли, самая новая внизу.
func Console(lines []models.ConsoleLine, connected bool) Screen {
	var b strings.Builder
	if connected {
		b.WriteString("🖥 Консоль 🟢\n")
	} else {
		b.WriteString("🖥 Консоль 🔴 отключено\n")
	}
	if len(lines) == 0 {
		b.WriteString("\n(пусто)")
	}
	for _, l := range lines {
		b.WriteString("\n" + l.Text)
	}
	return Screen{Text: b.String()}
}

func orPlaceholder(v, placeholder string) string {
	if v == "" {
		return placeholder
	}
	return v
}
