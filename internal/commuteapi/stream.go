package commuteapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// StreamHandler получает события потока /stream-logs
type StreamHandler struct {
	OnOpen    func()
	OnMessage func(line string)
}

// StreamLogs держит соединение с /stream-logs, пока его не закроет сервер
// или не отменят ctx. Переподключения нет. При отмене ctx возвращает ctx.Err(),
// если сервер закрыл поток - io.EOF.
func (c *Client) StreamLogs(ctx context.Context, h StreamHandler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stream-logs", nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return &TransportError{Op: "GET /stream-logs", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}

	if h.OnOpen != nil {
		h.OnOpen()
	}

	err = readEvents(resp.Body, func(event, data string) {
		if event != "" && event != "message" {
			return
		}
		if h.OnMessage != nil {
			h.OnMessage(data)
		}
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return &TransportError{Op: "GET /stream-logs", Err: err}
	}
	return io.EOF
}

// readEvents разбирает text/event-stream: строки data: копятся,
// пустая строка отправляет событие.
func readEvents(r io.Reader, dispatch func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		event   string
		data    []string
		hasData bool
	)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" {
			if hasData {
				dispatch(event, strings.Join(data, "\n"))
			}
			event, data, hasData = "", data[:0], false
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
