package commuteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kada-commute/internal/models"
)

const requestIDHeader = "X-Request-ID"

// Client - HTTP клиент API учета посещаемости (базовый путь /api)
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient без таймаута: поток логов держится открытым бесконечно
	streamClient *http.Client
	logger       *logrus.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithStreamClient(c *http.Client) Option {
	return func(cl *Client) { cl.streamClient = c }
}

func WithLogger(l *logrus.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login ищет сотрудника по имени.
func (c *Client) Login(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/login", LoginRequest{Name: name}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CheckIn(ctx context.Context, req CheckInRequest) error {
	return c.do(ctx, http.MethodPost, "/check-in", req, nil)
}

func (c *Client) CheckOut(ctx context.Context, req CheckOutRequest) error {
	return c.do(ctx, http.MethodPost, "/check-out", req, nil)
}

// History возвращает все записи сотрудника в порядке, который отдал сервер.
func (c *Client) History(ctx context.Context, employeeID models.EmployeeID) ([]models.AttendanceRecord, error) {
	records := []models.AttendanceRecord{}
	path := "/history/" + url.PathEscape(employeeID.String())
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) UpdateRecord(ctx context.Context, req UpdateRecordRequest) error {
	return c.do(ctx, http.MethodPut, "/record", req, nil)
}

func (c *Client) DeleteRecord(ctx context.Context, req DeleteRecordRequest) error {
	return c.do(ctx, http.MethodDelete, "/record", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path
	requestID := uuid.NewString()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"op":         op,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("API request failed")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Warn("Failed to read API response")
		return &TransportError{Op: op, Err: err}
	}

	log = log.WithField("status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(data)}
		log.WithField("detail", apiErr.Detail).Info("API request rejected")
		return apiErr
	}

	log.Debug("API request completed")

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// parseDetail достает поле detail. Оно бывает строкой или (ошибки валидации)
// списком объектов - тогда возвращается как есть.
func parseDetail(data []byte) string {
	var resp struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(resp.Detail, &s); err == nil {
		return s
	}
	return string(resp.Detail)
}
