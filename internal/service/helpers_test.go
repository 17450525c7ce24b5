package service_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/fakeapi"
	"kada-commute/internal/models"
	"kada-commute/internal/service"
	"kada-commute/internal/session"
)

var kimEmployee = fakeapi.Employee{ID: 1, Name: "Kim", Location: "HQ"}

func newAPI(t *testing.T, employees ...fakeapi.Employee) (*commuteapi.Client, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(employees...)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(func() {
		fake.CloseStreams()
		srv.Close()
	})
	return commuteapi.NewClient(srv.URL+"/api", 5*time.Second), fake
}

// deadAPI - клиент, сервер которого уже остановлен
func deadAPI(t *testing.T) *commuteapi.Client {
	t.Helper()
	srv := httptest.NewServer(fakeapi.New().Handler())
	url := srv.URL
	srv.Close()
	return commuteapi.NewClient(url+"/api", time.Second)
}

func signedIn(chatID int64) *session.Session {
	sess := session.New(chatID)
	sess.SignIn(models.User{ID: models.NewNumericEmployeeID("1"), Name: "Kim", Location: "HQ"})
	return sess
}

// blockingAPI держит CheckIn и History, пока тест не отпустит release
type blockingAPI struct {
	service.AttendanceAPI

	mu       sync.Mutex
	checkIns int
	started  chan struct{}
	release  chan struct{}
}

func newBlockingAPI() *blockingAPI {
	return &blockingAPI{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (b *blockingAPI) CheckIn(ctx context.Context, req commuteapi.CheckInRequest) error {
	b.mu.Lock()
	b.checkIns++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingAPI) CheckIns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkIns
}
