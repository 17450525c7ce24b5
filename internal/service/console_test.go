package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/models"
	"kada-commute/internal/repository"
	"kada-commute/internal/service"
)

func newConsole(t *testing.T) *service.ConsoleService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo, err := repository.NewGormConsoleRepository(db)
	require.NoError(t, err)
	return service.NewConsoleService(repo)
}

func texts(lines []models.ConsoleLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func TestConsoleRunAppendsStreamLines(t *testing.T) {
	api, fake := newAPI(t)
	console := newConsole(t)

	var (
		mu       sync.Mutex
		received []string
	)
	console.OnLine(func(l models.ConsoleLine) {
		mu.Lock()
		received = append(received, l.Text)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		console.Run(ctx, api)
		close(done)
	}()

	require.Eventually(t, func() bool { return fake.Listeners() == 1 && console.Connected() }, 2*time.Second, 10*time.Millisecond)
	fake.Log("GET /api/history/1 200")
	fake.Log("POST /api/check-in 200")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, 2*time.Second, 10*time.Millisecond)

	tail, err := console.Tail(10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		service.TextStreamConnected,
		"GET /api/history/1 200",
		"POST /api/check-in 200",
	}, texts(tail))

	// остановка процесса не пишет строку об отключении
	cancel()
	<-done
	assert.False(t, console.Connected())
	tail, err = console.Tail(10)
	require.NoError(t, err)
	assert.Len(t, tail, 3)
}

func TestConsoleMarksDisconnect(t *testing.T) {
	api, fake := newAPI(t)
	console := newConsole(t)

	done := make(chan struct{})
	go func() {
		console.Run(context.Background(), api)
		close(done)
	}()

	require.Eventually(t, func() bool { return fake.Listeners() == 1 && console.Connected() }, 2*time.Second, 10*time.Millisecond)
	fake.CloseStreams()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop after stream close")
	}

	assert.False(t, console.Connected())
	tail, err := console.Tail(10)
	require.NoError(t, err)
	assert.Equal(t, []string{service.TextStreamConnected, service.TextStreamDisconnected}, texts(tail))
}

func TestConsoleUnreachableStreamIsNotFatal(t *testing.T) {
	console := newConsole(t)

	console.Run(context.Background(), deadAPI(t))

	assert.False(t, console.Connected())
	tail, err := console.Tail(10)
	require.NoError(t, err)
	assert.Empty(t, tail)
}

type scriptedStream []string

func (s scriptedStream) StreamLogs(ctx context.Context, h commuteapi.StreamHandler) error {
	h.OnOpen()
	for _, line := range s {
		h.OnMessage(line)
	}
	return nil
}

func TestConsoleKeepsDeliveryOrder(t *testing.T) {
	console := newConsole(t)
	lines := scriptedStream{"a", "b", "c", "d"}

	console.Run(context.Background(), lines)

	tail, err := console.Tail(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", service.TextStreamDisconnected}, texts(tail))

	n, err := console.Lines()
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestConsoleSubscriptions(t *testing.T) {
	console := newConsole(t)

	require.NoError(t, console.Subscribe(5))
	require.NoError(t, console.SetMessageID(5, 77))

	ok, err := console.IsSubscribed(5)
	require.NoError(t, err)
	assert.True(t, ok)

	subs, err := console.Subscribers()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 77, subs[0].MessageID)

	require.NoError(t, console.Unsubscribe(5))
	subs, err = console.Subscribers()
	require.NoError(t, err)
	assert.Empty(t, subs)
}
