package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kada-commute/internal/models"
)

func kim() models.User {
	return models.User{ID: models.NewNumericEmployeeID("7"), Name: "Kim", Location: "Seoul"}
}

func loadedSession(t *testing.T, dates ...string) *Session {
	t.Helper()
	s := New(1)
	s.SignIn(kim())
	records := make([]models.AttendanceRecord, 0, len(dates))
	for _, d := range dates {
		records = append(records, models.AttendanceRecord{Date: d})
	}
	require.True(t, s.FinishHistoryLoad(s.BeginHistoryLoad(), records, nil))
	return s
}

func TestNewSessionStartsOnLogin(t *testing.T) {
	s := New(42)
	st := s.Snapshot()

	assert.Equal(t, int64(42), st.ChatID)
	assert.Equal(t, ViewLogin, st.View)
	assert.Nil(t, st.User)
	assert.Nil(t, s.User())
}

func TestSignInSwitchesToDashboard(t *testing.T) {
	s := New(1)
	s.SetLoginError("Сотрудник не найден.")
	s.Expect(InputName)

	s.SignIn(kim())
	st := s.Snapshot()

	assert.Equal(t, ViewDashboard, st.View)
	require.NotNil(t, st.User)
	assert.Equal(t, "Kim", st.User.Name)
	assert.Empty(t, st.LoginError)
	assert.Equal(t, InputNone, st.Input)
}

func TestSignOutResetsEverything(t *testing.T) {
	s := loadedSession(t, "2026-10-17")
	s.OpenHistory()
	require.NoError(t, s.OpenEdit("2026-10-17"))

	s.SignOut()
	st := s.Snapshot()

	assert.Equal(t, ViewLogin, st.View)
	assert.Nil(t, st.User)
	assert.False(t, st.HistoryOpen)
	assert.Equal(t, HistoryIdle, st.HistoryStatus)
	assert.Empty(t, st.History)
	assert.Nil(t, st.Edit)
	assert.Equal(t, InputNone, st.Input)
}

func TestSignOutDropsInFlightHistory(t *testing.T) {
	s := New(1)
	s.SignIn(kim())
	seq := s.BeginHistoryLoad()

	s.SignOut()

	assert.False(t, s.FinishHistoryLoad(seq, []models.AttendanceRecord{{Date: "2026-10-17"}}, nil))
	assert.Empty(t, s.History())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := loadedSession(t, "2026-10-17")
	st := s.Snapshot()

	st.User.Name = "changed"
	st.History[0].Date = "changed"

	assert.Equal(t, "Kim", s.User().Name)
	assert.Equal(t, "2026-10-17", s.History()[0].Date)
}

func TestManualMode(t *testing.T) {
	s := New(1)

	assert.ErrorIs(t, s.SetManualTime("09:00"), ErrManualModeOff)

	s.ToggleManual("2026-10-18")
	manual, at, date := s.ManualEntry()
	assert.True(t, manual)
	assert.Empty(t, at)
	assert.Equal(t, "2026-10-18", date)

	require.NoError(t, s.SetManualTime("09:00"))
	require.NoError(t, s.SetManualDate("2026-10-17"))
	s.Expect(InputManualDate)

	s.ToggleManual("2026-10-18")
	manual, at, date = s.ManualEntry()
	assert.False(t, manual)
	assert.Empty(t, at)
	assert.Empty(t, date)
	assert.Equal(t, InputNone, s.Input())
}

func TestBeginIsExclusivePerAction(t *testing.T) {
	s := New(1)

	require.True(t, s.Begin(ActionCheckIn))
	assert.False(t, s.Begin(ActionCheckIn))
	assert.True(t, s.Begin(ActionCheckOut))
	assert.True(t, s.Snapshot().Busy[ActionCheckIn])

	s.End(ActionCheckIn)
	assert.False(t, s.Snapshot().Busy[ActionCheckIn])
	assert.True(t, s.Begin(ActionCheckIn))
}

func TestHistoryLoadStatuses(t *testing.T) {
	s := New(1)

	seq := s.BeginHistoryLoad()
	assert.Equal(t, HistoryLoading, s.Snapshot().HistoryStatus)
	require.True(t, s.FinishHistoryLoad(seq, nil, nil))
	assert.Equal(t, HistoryEmpty, s.Snapshot().HistoryStatus)

	seq = s.BeginHistoryLoad()
	require.True(t, s.FinishHistoryLoad(seq, nil, errors.New("boom")))
	assert.Equal(t, HistoryFailed, s.Snapshot().HistoryStatus)

	seq = s.BeginHistoryLoad()
	require.True(t, s.FinishHistoryLoad(seq, []models.AttendanceRecord{{Date: "2026-10-17"}}, nil))
	st := s.Snapshot()
	assert.Equal(t, HistoryLoaded, st.HistoryStatus)
	assert.Len(t, st.History, 1)
}

func TestStaleHistoryLoadIsDropped(t *testing.T) {
	s := New(1)

	first := s.BeginHistoryLoad()
	second := s.BeginHistoryLoad()

	require.True(t, s.FinishHistoryLoad(second, []models.AttendanceRecord{{Date: "2026-10-18"}}, nil))
	assert.False(t, s.FinishHistoryLoad(first, []models.AttendanceRecord{{Date: "2026-10-01"}}, nil))

	hist := s.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "2026-10-18", hist[0].Date)
}

func TestOpenEdit(t *testing.T) {
	s := loadedSession(t, "2026-10-17", "2026-10-16")

	assert.ErrorIs(t, s.OpenEdit("2026-01-01"), ErrUnknownDate)
	assert.Nil(t, s.EditTarget())

	require.NoError(t, s.OpenEdit("2026-10-17"))
	target := s.EditTarget()
	require.NotNil(t, target)
	assert.Equal(t, "2026-10-17", target.Date)
	assert.Equal(t, models.FieldCheckIn, target.Field)
	assert.Empty(t, target.Time)
	assert.Equal(t, InputEditTime, s.Input())

	require.NoError(t, s.SetEditTime("10:00"))
	require.NoError(t, s.SelectEditField(models.FieldCheckOut))

	// другая запись заменяет открытую без вопросов
	require.NoError(t, s.OpenEdit("2026-10-16"))
	target = s.EditTarget()
	assert.Equal(t, "2026-10-16", target.Date)
	assert.Empty(t, target.Time)
	assert.Equal(t, models.FieldCheckIn, target.Field)
}

func TestOpenEditRequiresUser(t *testing.T) {
	s := New(1)
	assert.ErrorIs(t, s.OpenEdit("2026-10-17"), ErrNotLoggedIn)
}

func TestEditWithoutTarget(t *testing.T) {
	s := loadedSession(t, "2026-10-17")

	assert.ErrorIs(t, s.SetEditTime("10:00"), ErrNoEditTarget)
	assert.ErrorIs(t, s.SelectEditField(models.FieldCheckOut), ErrNoEditTarget)

	require.NoError(t, s.OpenEdit("2026-10-17"))
	assert.ErrorIs(t, s.SelectEditField(models.Field("lunch")), ErrInvalidField)

	s.CloseEdit()
	assert.Nil(t, s.EditTarget())
	assert.Equal(t, InputNone, s.Input())
}

func TestStoreReturnsSameSession(t *testing.T) {
	store := NewStore()

	a := store.Get(1)
	b := store.Get(1)
	c := store.Get(2)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, int64(2), c.ChatID())
}

func TestCloseHistoryKeepsSnapshot(t *testing.T) {
	s := loadedSession(t, "2026-10-17")
	s.OpenHistory()
	require.True(t, s.Snapshot().HistoryOpen)

	s.CloseHistory()

	assert.False(t, s.Snapshot().HistoryOpen)
	// даты из снимка остаются доступны для изменения
	assert.True(t, s.HasDate("2026-10-17"))
}

func TestReloadWithoutEditDateClosesEdit(t *testing.T) {
	s := loadedSession(t, "2026-10-16", "2026-10-17")
	require.NoError(t, s.OpenEdit("2026-10-17"))
	require.NoError(t, s.SetEditTime("18:00"))

	require.True(t, s.FinishHistoryLoad(s.BeginHistoryLoad(), []models.AttendanceRecord{{Date: "2026-10-17"}}, nil))
	require.NotNil(t, s.EditTarget())

	require.True(t, s.FinishHistoryLoad(s.BeginHistoryLoad(), []models.AttendanceRecord{{Date: "2026-10-16"}}, nil))
	st := s.Snapshot()
	assert.Nil(t, st.Edit)
	assert.Equal(t, InputNone, st.Input)
}

func TestFailedReloadClosesEdit(t *testing.T) {
	s := loadedSession(t, "2026-10-17")
	require.NoError(t, s.OpenEdit("2026-10-17"))

	require.True(t, s.FinishHistoryLoad(s.BeginHistoryLoad(), nil, errors.New("boom")))
	assert.Nil(t, s.EditTarget())
}

func TestConcurrentToggleManualAlternates(t *testing.T) {
	s := New(1)

	var (
		wg sync.WaitGroup
		on atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ToggleManual("2026-10-18") {
				on.Add(1)
			}
		}()
	}
	wg.Wait()

	// каждое включение сменяется выключением: 20 нажатий - 10 включений
	assert.Equal(t, int32(10), on.Load())
	manual, _, _ := s.ManualEntry()
	assert.False(t, manual)
}
