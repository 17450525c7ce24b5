package models

import "time"

// ConsoleLine - строка лога, полученная из потока /stream-logs
type ConsoleLine struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ConsoleLine) TableName() string {
	return "console_lines"
}

// ConsoleSubscriber - чат, которому показывается живая консоль
type ConsoleSubscriber struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ChatID    int64     `gorm:"uniqueIndex;not null" json:"chat_id"`
	MessageID int       `json:"message_id"` // сообщение, которое редактируется при новых строках
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ConsoleSubscriber) TableName() string {
	return "console_subscribers"
}
