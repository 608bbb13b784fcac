package models

import "time"

// Notification is written by the alerting process and only ever read here.
type Notification struct {
	ID      uint      `gorm:"primaryKey" json:"notification_id"`
	UserID  uint      `gorm:"index;not null" json:"user_id"`
	Message string    `gorm:"not null" json:"message"`
	Type    string    `json:"type"`
	SentAt  time.Time `gorm:"index" json:"sent_at"`
}
