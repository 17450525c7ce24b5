package commuteapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/fakeapi"
	"kada-commute/internal/models"
)

func newTestClient(t *testing.T, employees ...fakeapi.Employee) (*commuteapi.Client, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(employees...)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(func() {
		fake.CloseStreams()
		srv.Close()
	})
	return commuteapi.NewClient(srv.URL+"/api", 5*time.Second), fake
}

func strPtr(s string) *string { return &s }

func TestLogin(t *testing.T) {
	client, fake := newTestClient(t, fakeapi.Employee{ID: 7, Name: "Kim", Location: "Seoul"})

	user, err := client.Login(context.Background(), "Kim")
	require.NoError(t, err)
	assert.Equal(t, "Kim", user.Name)
	assert.Equal(t, "Seoul", user.Location)
	assert.Equal(t, "7", user.ID.String())

	req, ok := fake.Last(http.MethodPost, "/login")
	require.True(t, ok)
	assert.Equal(t, "Kim", req.Body["name"])
	assert.NotEmpty(t, req.RequestID)
}

func TestLoginNotFound(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Login(context.Background(), "Nobody")
	require.Error(t, err)

	apiErr, ok := commuteapi.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Employee not found", apiErr.Message())
	assert.False(t, commuteapi.IsTransportError(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := commuteapi.NewClient(url+"/api", time.Second)
	_, err := client.Login(context.Background(), "Kim")
	require.Error(t, err)
	assert.True(t, commuteapi.IsTransportError(err))

	var te *commuteapi.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "POST /login", te.Op)
}

func TestCheckInSendsNullsInAutomaticMode(t *testing.T) {
	client, fake := newTestClient(t)

	err := client.CheckIn(context.Background(), commuteapi.CheckInRequest{
		Name:       "Kim",
		Location:   "Seoul",
		EmployeeID: models.NewNumericEmployeeID("7"),
	})
	require.NoError(t, err)

	req, ok := fake.Last(http.MethodPost, "/check-in")
	require.True(t, ok)
	assert.Equal(t, json.Number("7"), req.Body["employee_id"])
	assert.Equal(t, "Seoul", req.Body["location"])
	assert.Contains(t, req.Body, "time")
	assert.Nil(t, req.Body["time"])
	assert.Contains(t, req.Body, "date")
	assert.Nil(t, req.Body["date"])
}

func TestCheckOutManual(t *testing.T) {
	client, fake := newTestClient(t)
	fake.SetRecord("E001", "2026-10-17", "09:00:00", "")

	err := client.CheckOut(context.Background(), commuteapi.CheckOutRequest{
		Name:       "Lee",
		EmployeeID: models.NewEmployeeID("E001"),
		Time:       strPtr("18:30"),
		Date:       strPtr("2026-10-17"),
	})
	require.NoError(t, err)

	req, ok := fake.Last(http.MethodPost, "/check-out")
	require.True(t, ok)
	assert.Equal(t, "E001", req.Body["employee_id"])
	assert.Equal(t, "18:30", req.Body["time"])
	assert.NotContains(t, req.Body, "location")

	records := fake.Records("E001")
	require.Len(t, records, 1)
	assert.Equal(t, "18:30:00", records[0].CheckOut())
}

func TestCheckOutWithoutRecord(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.CheckOut(context.Background(), commuteapi.CheckOutRequest{
		Name:       "Kim",
		EmployeeID: models.NewNumericEmployeeID("7"),
	})
	apiErr, ok := commuteapi.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Check-out failed (maybe no record for today?)", apiErr.Detail)
}

func TestHistory(t *testing.T) {
	client, fake := newTestClient(t)
	fake.SetRecord(7, "2026-10-16", "09:00:00", "18:00:00")
	fake.SetRecord(7, "2026-10-17", "09:10:00", "")

	records, err := client.History(context.Background(), models.NewNumericEmployeeID("7"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-10-17", records[0].Date)
	assert.Equal(t, "09:10:00", records[0].CheckIn())
	assert.Nil(t, records[0].CheckOutTime)
	assert.Equal(t, "18:00:00", records[1].CheckOut())
}

func TestHistoryEmptyIsNotNil(t *testing.T) {
	client, _ := newTestClient(t)

	records, err := client.History(context.Background(), models.NewNumericEmployeeID("7"))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	client, fake := newTestClient(t)
	fake.SetRecord(7, "2026-10-16", "09:00:00", "18:00:00")
	id := models.NewNumericEmployeeID("7")

	err := client.UpdateRecord(context.Background(), commuteapi.UpdateRecordRequest{
		EmployeeID: id,
		Date:       "2026-10-16",
		Field:      models.FieldCheckOut,
		Value:      "17:45:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "17:45:00", fake.Records(7)[0].CheckOut())

	put, ok := fake.Last(http.MethodPut, "/record")
	require.True(t, ok)
	assert.Equal(t, "checkout", put.Body["field"])

	err = client.DeleteRecord(context.Background(), commuteapi.DeleteRecordRequest{EmployeeID: id, Date: "2026-10-16"})
	require.NoError(t, err)
	assert.Empty(t, fake.Records(7))

	del, ok := fake.Last(http.MethodDelete, "/record")
	require.True(t, ok)
	assert.Equal(t, "2026-10-16", del.Body["date"])

	err = client.DeleteRecord(context.Background(), commuteapi.DeleteRecordRequest{EmployeeID: id, Date: "2026-10-16"})
	apiErr, ok := commuteapi.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Delete failed", apiErr.Detail)
}

func TestErrorWithoutDetailFallsBackToStatusText(t *testing.T) {
	client, fake := newTestClient(t)
	fake.Fail("POST /check-in", http.StatusInternalServerError, "")

	err := client.CheckIn(context.Background(), commuteapi.CheckInRequest{Name: "Kim"})
	apiErr, ok := commuteapi.IsAPIError(err)
	require.True(t, ok)
	assert.Empty(t, apiErr.Detail)
	assert.Equal(t, "Internal Server Error", apiErr.Message())
}

func TestValidationDetailListIsKeptRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":[{"loc":["body","name"],"msg":"field required"}]}`)
	}))
	defer srv.Close()

	client := commuteapi.NewClient(srv.URL, time.Second)
	_, err := client.Login(context.Background(), "Kim")
	apiErr, ok := commuteapi.IsAPIError(err)
	require.True(t, ok)
	assert.Contains(t, apiErr.Detail, "field required")
}

func TestStreamLogs(t *testing.T) {
	client, fake := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		lines  []string
		opened bool
	)
	done := make(chan error, 1)
	go func() {
		done <- client.StreamLogs(ctx, commuteapi.StreamHandler{
			OnOpen: func() {
				mu.Lock()
				opened = true
				mu.Unlock()
			},
			OnMessage: func(line string) {
				mu.Lock()
				lines = append(lines, line)
				mu.Unlock()
			},
		})
	}()

	require.Eventually(t, func() bool { return fake.Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)
	fake.Log("server started")
	fake.Log("Kim checked in")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lines) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.True(t, opened)
	assert.Equal(t, []string{"server started", "Kim checked in"}, lines)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestStreamLogsServerClose(t *testing.T) {
	client, fake := newTestClient(t)

	done := make(chan error, 1)
	go func() {
		done <- client.StreamLogs(context.Background(), commuteapi.StreamHandler{})
	}()

	require.Eventually(t, func() bool { return fake.Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)
	fake.CloseStreams()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after server close")
	}
}

func TestStreamLogsRejected(t *testing.T) {
	client, fake := newTestClient(t)
	fake.Fail("GET /stream-logs", http.StatusServiceUnavailable, "maintenance")

	opened := false
	err := client.StreamLogs(context.Background(), commuteapi.StreamHandler{
		OnOpen: func() { opened = true },
	})
	apiErr, ok := commuteapi.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "maintenance", apiErr.Detail)
	assert.False(t, opened)
}
