package models

import "time"

// User is a commuter account. PasswordHash never leaves the server.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"user_id"`
	Name            string    `json:"name"`
	Age             *int      `json:"age,omitempty"`
	MobileNo        string    `gorm:"uniqueIndex;size:10;not null" json:"mobile_no"`
	Email           *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash    string    `gorm:"not null" json:"-"`
	RegionOfCommute *string   `json:"region_of_commute,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
