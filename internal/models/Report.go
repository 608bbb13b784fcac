package models

import "time"

type Report struct {
	ID           uint      `gorm:"primaryKey" json:"report_id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	IncidentType string    `gorm:"not null" json:"incident_type"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	ImageURL     *string   `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
}
