// Package session - состояние одного чата: кто вошел, какой экран открыт,
// ручной ввод времени, история и редактируемая запись.
// Состояние меняется только через методы Session; экран строится из State.
package session

import (
	"errors"
	"sync"

	"kada-commute/internal/models"
)

type View string

const (
	ViewLogin     View = "login"
	ViewDashboard View = "dashboard"
)

// Action - действие, которое может выполняться не более одного раза одновременно
type Action string

const (
	ActionCheckIn  Action = "checkin"
	ActionCheckOut Action = "checkout"
)

type HistoryStatus int

const (
	HistoryIdle HistoryStatus = iota
	HistoryLoading
	HistoryLoaded
	HistoryEmpty
	HistoryFailed
)

// Input - чего бот ждет от следующего текстового сообщения
type Input string

const (
	InputNone       Input = ""
	InputName       Input = "name"
	InputManualTime Input = "manual_time"
	InputManualDate Input = "manual_date"
	InputEditTime   Input = "edit_time"
)

var (
	ErrNotLoggedIn   = errors.New("пользователь не вошел")
	ErrUnknownDate   = errors.New("записи за эту дату нет в загруженной истории")
	ErrNoEditTarget  = errors.New("запись для изменения не выбрана")
	ErrInvalidField  = errors.New("неизвестное поле записи")
	ErrManualModeOff = errors.New("ручной ввод выключен")
)

// EditTarget - запись, открытая на изменение
type EditTarget struct {
	Date  string
	Field models.Field
	Time  string
}

// State - снимок состояния для отрисовки
type State struct {
	ChatID        int64
	View          View
	User          *models.User
	LoginError    string
	Manual        bool
	ManualTime    string
	ManualDate    string
	Busy          map[Action]bool
	HistoryOpen   bool
	HistoryStatus HistoryStatus
	History       []models.AttendanceRecord
	Edit          *EditTarget
	Input         Input
}

type Session struct {
	mu sync.Mutex

	chatID     int64
	view       View
	user       *models.User
	loginError string

	manual     bool
	manualTime string
	manualDate string

	busy map[Action]bool

	historyOpen   bool
	historyStatus HistoryStatus
	history       []models.AttendanceRecord
	historySeq    uint64

	edit  *EditTarget
	input Input
}

func New(chatID int64) *Session {
	return &Session{
		chatID: chatID,
		view:   ViewLogin,
		busy:   make(map[Action]bool),
	}
}

func (s *Session) ChatID() int64 {
	return s.chatID
}

// Snapshot копирует состояние; копию можно читать без блокировки.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ChatID:        s.chatID,
		View:          s.view,
		LoginError:    s.loginError,
		Manual:        s.manual,
		ManualTime:    s.manualTime,
		ManualDate:    s.manualDate,
		Busy:          make(map[Action]bool, len(s.busy)),
		HistoryOpen:   s.historyOpen,
		HistoryStatus: s.historyStatus,
		Input:         s.input,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	for a, b := range s.busy {
		if b {
			st.Busy[a] = true
		}
	}
	if s.history != nil {
		st.History = append([]models.AttendanceRecord(nil), s.history...)
	}
	if s.edit != nil {
		e := *s.edit
		st.Edit = &e
	}
	return st
}

// ---------- вход и выход ----------

// User возвращает копию текущего пользователя или nil.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SignIn сохраняет пользователя и переключает на главный экран.
func (s *Session) SignIn(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.view = ViewDashboard
	s.loginError = ""
	if s.input == InputName {
		s.input = InputNone
	}
}

// SetLoginError показывает ошибку на экране входа, экран не меняется.
func (s *Session) SetLoginError(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginError = text
}

// ClearLoginError убирает прошлую ошибку перед новым запросом входа.
func (s *Session) ClearLoginError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginError = ""
}

// SignOut забывает пользователя и все, что было открыто на главном экране.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.view = ViewLogin
	s.loginError = ""
	s.input = InputNone
	s.historyOpen = false
	s.historyStatus = HistoryIdle
	s.history = nil
	s.historySeq++
	s.edit = nil
}

// ---------- ожидаемый ввод ----------

func (s *Session) Input() Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Session) Expect(in Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = in
}

// ---------- ручной ввод времени ----------

// ToggleManual переключает ручной режим и возвращает новое значение.
// При включении дата становится today, время пустое; при выключении оба
// поля очищаются.
func (s *Session) ToggleManual(today string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = !s.manual
	s.manualTime = ""
	if s.manual {
		s.manualDate = today
		return true
	}
	s.manualDate = ""
	if s.input == InputManualTime || s.input == InputManualDate {
		s.input = InputNone
	}
	return false
}

func (s *Session) SetManualTime(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.manual {
		return ErrManualModeOff
	}
	s.manualTime = value
	return nil
}

func (s *Session) SetManualDate(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.manual {
		return ErrManualModeOff
	}
	s.manualDate = value
	return nil
}

// ManualEntry возвращает режим и введенные значения.
func (s *Session) ManualEntry() (manual bool, at string, date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manual, s.manualTime, s.manualDate
}

// ---------- занятые действия ----------

// Begin помечает действие занятым. false - действие уже выполняется.
func (s *Session) Begin(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[a] {
		return false
	}
	s.busy[a] = true
	return true
}

func (s *Session) End(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, a)
}

// ---------- история ----------

func (s *Session) OpenHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyOpen = true
}

func (s *Session) CloseHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyOpen = false
}

// BeginHistoryLoad переводит историю в состояние загрузки и возвращает номер
// загрузки. Применяется только результат последней начатой загрузки.
func (s *Session) BeginHistoryLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historySeq++
	s.historyStatus = HistoryLoading
	return s.historySeq
}

// FinishHistoryLoad применяет результат загрузки seq. false - загрузка устарела.
func (s *Session) FinishHistoryLoad(seq uint64, records []models.AttendanceRecord, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.historySeq {
		return false
	}
	switch {
	case err != nil:
		s.historyStatus = HistoryFailed
		s.history = nil
	case len(records) == 0:
		s.historyStatus = HistoryEmpty
		s.history = []models.AttendanceRecord{}
	default:
		s.historyStatus = HistoryLoaded
		s.history = append([]models.AttendanceRecord(nil), records...)
	}
	// изменять можно только запись из последнего снимка
	if s.edit != nil && !s.hasDateLocked(s.edit.Date) {
		s.closeEditLocked()
	}
	return true
}

// History возвращает последний загруженный снимок истории.
func (s *Session) History() []models.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AttendanceRecord(nil), s.history...)
}

func (s *Session) hasDateLocked(date string) bool {
	for _, r := range s.history {
		if r.Date == date {
			return true
		}
	}
	return false
}

// HasDate сообщает, есть ли дата в последнем снимке истории.
func (s *Session) HasDate(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDateLocked(date)
}

// ---------- изменение записи ----------

// OpenEdit выбирает запись для изменения. Открытая ранее запись заменяется
// без подтверждения. Время не заполняется, поле по умолчанию - приход.
func (s *Session) OpenEdit(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotLoggedIn
	}
	if !s.hasDateLocked(date) {
		return ErrUnknownDate
	}
	s.edit = &EditTarget{Date: date, Field: models.FieldCheckIn}
	s.input = InputEditTime
	return nil
}

func (s *Session) SelectEditField(f models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return ErrNoEditTarget
	}
	if !f.Valid() {
		return ErrInvalidField
	}
	s.edit.Field = f
	return nil
}

func (s *Session) SetEditTime(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return ErrNoEditTarget
	}
	s.edit.Time = value
	return nil
}

// EditTarget возвращает копию открытой записи или nil.
func (s *Session) EditTarget() *EditTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return nil
	}
	e := *s.edit
	return &e
}

// CloseEdit закрывает изменение (отмена или успешное сохранение).
func (s *Session) CloseEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeEditLocked()
}

func (s *Session) closeEditLocked() {
	s.edit = nil
	if s.input == InputEditTime {
		s.input = InputNone
	}
}
