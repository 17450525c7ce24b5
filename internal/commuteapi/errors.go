package commuteapi

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError - сервер ответил статусом не из диапазона 2xx
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

// Message возвращает текст для пользователя: detail сервера или текст статуса.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.StatusCode)
}

// TransportError - запрос не дошел до сервера или ответ не удалось прочитать
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAPIError сообщает, что ошибка пришла от сервера, и возвращает ее.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTransportError сообщает, что запрос не был выполнен.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}
