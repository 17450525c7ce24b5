package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kada-commute/internal/models"
)

func newTestRepo(t *testing.T) *GormConsoleRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// одна база :memory: на одно соединение
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo, err := NewGormConsoleRepository(db)
	require.NoError(t, err)
	return repo
}

func TestAppendAndTail(t *testing.T) {
	repo := newTestRepo(t)

	for i := 1; i <= 5; i++ {
		line := &models.ConsoleLine{Text: fmt.Sprintf("line %d", i)}
		require.NoError(t, repo.Append(line))
		assert.NotZero(t, line.ID)
	}

	tail, err := repo.Tail(3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, "line 3", tail[0].Text)
	assert.Equal(t, "line 5", tail[2].Text)

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestTailEmpty(t *testing.T) {
	repo := newTestRepo(t)

	tail, err := repo.Tail(10)
	require.NoError(t, err)
	assert.Empty(t, tail)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Subscribe(100))
	require.NoError(t, repo.Subscribe(100))
	require.NoError(t, repo.Subscribe(200))

	subs, err := repo.Subscribers()
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, int64(100), subs[0].ChatID)

	ok, err := repo.IsSubscribed(100)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetMessageID(t *testing.T) {
	repo := newTestRepo(t)

	assert.Error(t, repo.SetMessageID(100, 5))

	require.NoError(t, repo.Subscribe(100))
	require.NoError(t, repo.SetMessageID(100, 42))

	subs, err := repo.Subscribers()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 42, subs[0].MessageID)
}

func TestUnsubscribe(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Subscribe(100))

	require.NoError(t, repo.Unsubscribe(100))
	assert.Error(t, repo.Unsubscribe(100))

	ok, err := repo.IsSubscribed(100)
	require.NoError(t, err)
	assert.False(t, ok)
}
