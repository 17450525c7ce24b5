package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	valid := map[string]string{
		"09:30":   "09:30",
		"9:30":    "09:30",
		"09.30":   "09:30",
		"09-30":   "09:30",
		" 18:05 ": "18:05",
	}
	for in, want := range valid {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "25:00", "09:60", "0930", "утро", "09:30:00"} {
		_, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrInvalidTime, in)
	}
}

func TestParseEditClockKeepsSeconds(t *testing.T) {
	got, err := ParseEditClock("09:30:45")
	require.NoError(t, err)
	assert.Equal(t, "09:30:45", got)

	got, err = ParseEditClock("9.30")
	require.NoError(t, err)
	assert.Equal(t, "09:30", got)

	_, err = ParseEditClock("9:30:99")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.Local)

	valid := map[string]string{
		"2024-05-01": "2024-05-01",
		"01.05.2024": "2024-05-01",
		"01-05-2024": "2024-05-01",
		"01.05":      "2026-05-01",
		"17-10":      "2026-10-17",
	}
	for in, want := range valid {
		got, err := ParseDate(in, now)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "2024-13-01", "32.01", "вчера"} {
		_, err := ParseDate(in, now)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestNormalizeEditValue(t *testing.T) {
	assert.Equal(t, "09:30:00", NormalizeEditValue("09:30"))
	assert.Equal(t, "09:30:45", NormalizeEditValue("09:30:45"))
	assert.Equal(t, "9:30", NormalizeEditValue("9:30"))
	assert.Equal(t, "", NormalizeEditValue(""))
}
