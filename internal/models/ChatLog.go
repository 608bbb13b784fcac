package models

import "time"

const (
	ChatSenderUser = "user"
	ChatSenderBot  = "bot"
)

type ChatLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	Sender    string    `gorm:"size:8;not null" json:"sender"`
	Message   string    `gorm:"not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
