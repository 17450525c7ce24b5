package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// EmployeeID хранит идентификатор сотрудника в том виде, в каком его вернул API
// (число или строка), и отдает его обратно в той же JSON-форме.
type EmployeeID struct {
	value  string
	quoted bool
}

// NewEmployeeID создает строковый идентификатор.
func NewEmployeeID(value string) EmployeeID {
	return EmployeeID{value: value, quoted: true}
}

// NewNumericEmployeeID создает числовой идентификатор.
func NewNumericEmployeeID(value string) EmployeeID {
	return EmployeeID{value: value}
}

func (id EmployeeID) String() string {
	return id.value
}

func (id EmployeeID) MarshalJSON() ([]byte, error) {
	if id.quoted || id.value == "" {
		return json.Marshal(id.value)
	}
	return []byte(id.value), nil
}

func (id *EmployeeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = EmployeeID{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NewEmployeeID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("employee id must be a string or a number")
	}
	*id = NewNumericEmployeeID(n.String())
	return nil
}

// User - сотрудник, найденный по имени при входе
type User struct {
	ID       EmployeeID `json:"id"`
	Name     string     `json:"name"`
	Location string     `json:"location"`
}
