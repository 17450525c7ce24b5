// Package fakeapi - тестовый двойник API учета посещаемости.
// Хранит все в памяти, записывает входящие запросы и умеет отвечать ошибками.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"kada-commute/internal/models"
)

// Employee - сотрудник. ID может быть числом или строкой, как в таблице.
type Employee struct {
	ID       any    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Recorded - запрос, который получил сервер
type Recorded struct {
	Method    string
	Path      string
	Body      map[string]any
	RequestID string
}

type failure struct {
	status int
	detail string
}

type Server struct {
	mu        sync.Mutex
	engine    *gin.Engine
	employees []Employee
	records   map[string]map[string]*models.AttendanceRecord
	requests  []Recorded
	failures  map[string]failure
	listeners map[chan string]struct{}
	now       func() time.Time
}

func New(employees ...Employee) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		employees: employees,
		records:   make(map[string]map[string]*models.AttendanceRecord),
		failures:  make(map[string]failure),
		listeners: make(map[chan string]struct{}),
		now:       time.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.Use(s.recordRequest, s.injectFailure)
	api.POST("/login", s.login)
	api.POST("/check-in", s.checkIn)
	api.POST("/check-out", s.checkOut)
	api.GET("/history/:employee_id", s.history)
	api.PUT("/record", s.updateRecord)
	api.DELETE("/record", s.deleteRecord)
	api.GET("/stream-logs", s.streamLogs)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetClock подменяет текущее время сервера.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Fail заставляет маршрут (например "POST /check-in" или
// "GET /history/:employee_id") отвечать статусом status с полем detail.
// Пустой detail - тело ответа без detail.
func (s *Server) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, detail: detail}
}

// Recover снимает ошибку с маршрута.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls считает запросы по методу и пути без /api, например ("PUT", "/record").
// Путь с префиксом "*" сравнивается по началу: ("GET", "/history/*").
func (s *Server) Calls(method, path string) int {
	prefix, isPrefix := strings.CutSuffix(path, "*")
	n := 0
	for _, r := range s.Requests() {
		if r.Method != method {
			continue
		}
		if r.Path == path || (isPrefix && strings.HasPrefix(r.Path, prefix)) {
			n++
		}
	}
	return n
}

// Last возвращает последний запрос по методу и пути.
func (s *Server) Last(method, path string) (Recorded, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Recorded{}, false
}

// SetRecord кладет запись напрямую, пустое время означает null.
func (s *Server) SetRecord(employeeID any, date, checkIn, checkOut string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordLocked(idKey(employeeID), date, true)
	rec.CheckInTime = optional(checkIn)
	rec.CheckOutTime = optional(checkOut)
}

// Records возвращает записи сотрудника, новые сверху.
func (s *Server) Records(employeeID any) []models.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordsLocked(idKey(employeeID))
}

// Log отправляет строку всем открытым потокам /stream-logs.
func (s *Server) Log(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.listeners {
		select {
		case ch <- line:
		default:
		}
	}
}

// Listeners - число открытых потоков логов.
func (s *Server) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// CloseStreams закрывает все открытые потоки логов со стороны сервера.
func (s *Server) CloseStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.listeners {
		close(ch)
		delete(s.listeners, ch)
	}
}

// ---------- middleware ----------

func (s *Server) recordRequest(c *gin.Context) {
	rec := Recorded{
		Method:    c.Request.Method,
		Path:      strings.TrimPrefix(c.Request.URL.Path, "/api"),
		RequestID: c.GetHeader("X-Request-ID"),
	}

	if c.Request.Body != nil {
		data, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(data))
		if len(data) > 0 {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()
			body := map[string]any{}
			if err := dec.Decode(&body); err == nil {
				rec.Body = body
			}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	c.Next()
}

func (s *Server) injectFailure(c *gin.Context) {
	route := c.Request.Method + " " + strings.TrimPrefix(c.FullPath(), "/api")

	s.mu.Lock()
	f, ok := s.failures[route]
	s.mu.Unlock()

	if !ok {
		c.Next()
		return
	}
	if f.detail == "" {
		c.AbortWithStatusJSON(f.status, gin.H{})
		return
	}
	c.AbortWithStatusJSON(f.status, gin.H{"detail": f.detail})
}

// ---------- handlers ----------

type loginRequest struct {
	Name string `json:"name" binding:"required"`
}

type markRequest struct {
	Name       string            `json:"name"`
	Location   string            `json:"location"`
	EmployeeID models.EmployeeID `json:"employee_id"`
	Time       *string           `json:"time"`
	Date       *string           `json:"date"`
}

type recordRequest struct {
	EmployeeID models.EmployeeID `json:"employee_id"`
	Date       string            `json:"date"`
	Field      string            `json:"field"`
	Value      string            `json:"value"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.employees {
		if e.Name == req.Name {
			c.JSON(http.StatusOK, e)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Employee not found"})
}

func (s *Server) checkIn(c *gin.Context) {
	var req markRequest
	if err := bindLoose(c, &req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	date, at := s.stampLocked(req.Date, req.Time)
	rec := s.recordLocked(req.EmployeeID.String(), date, true)
	rec.CheckInTime = &at
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Check-in successful"})
}

func (s *Server) checkOut(c *gin.Context) {
	var req markRequest
	if err := bindLoose(c, &req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	date, at := s.stampLocked(req.Date, req.Time)
	rec := s.recordLocked(req.EmployeeID.String(), date, false)
	if rec == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Check-out failed (maybe no record for today?)"})
		return
	}
	rec.CheckOutTime = &at
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Check-out successful"})
}

func (s *Server) history(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.recordsLocked(c.Param("employee_id")))
}

func (s *Server) updateRecord(c *gin.Context) {
	var req recordRequest
	if err := bindLoose(c, &req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordLocked(req.EmployeeID.String(), req.Date, false)
	if rec == nil || !models.Field(req.Field).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Update failed"})
		return
	}
	value := req.Value
	if models.Field(req.Field) == models.FieldCheckIn {
		rec.CheckInTime = &value
	} else {
		rec.CheckOutTime = &value
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Record updated"})
}

func (s *Server) deleteRecord(c *gin.Context) {
	var req recordRequest
	if err := bindLoose(c, &req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byDate := s.records[req.EmployeeID.String()]
	if _, ok := byDate[req.Date]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Delete failed"})
		return
	}
	delete(byDate, req.Date)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Record deleted"})
}

func (s *Server) streamLogs(c *gin.Context) {
	ch := make(chan string, 64)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if _, ok := s.listeners[ch]; ok {
			delete(s.listeners, ch)
		}
		s.mu.Unlock()
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case line, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("message", line)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// ---------- helpers ----------

// bindLoose разбирает тело без binding-валидации gin: employee_id приходит
// и числом, и строкой.
func bindLoose(c *gin.Context, out any) error {
	if err := json.NewDecoder(c.Request.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func (s *Server) stampLocked(date, at *string) (string, string) {
	now := s.now()
	d := now.Format("2006-01-02")
	if date != nil && *date != "" {
		d = *date
	}
	t := now.Format("15:04:05")
	if at != nil && *at != "" {
		t = *at
		if len(t) == 5 {
			t += ":00"
		}
	}
	return d, t
}

func (s *Server) recordLocked(employeeID, date string, create bool) *models.AttendanceRecord {
	byDate, ok := s.records[employeeID]
	if !ok {
		if !create {
			return nil
		}
		byDate = make(map[string]*models.AttendanceRecord)
		s.records[employeeID] = byDate
	}
	rec, ok := byDate[date]
	if !ok {
		if !create {
			return nil
		}
		rec = &models.AttendanceRecord{Date: date}
		byDate[date] = rec
	}
	return rec
}

func (s *Server) recordsLocked(employeeID string) []models.AttendanceRecord {
	out := []models.AttendanceRecord{}
	for _, rec := range s.records[employeeID] {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func idKey(id any) string {
	return fmt.Sprint(id)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
