package models

import "time"

type LocationUpdate struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"index;not null" json:"session_id"`
	BusNumber  string    `gorm:"index;not null" json:"bus_number"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      float64   `json:"speed"`   // km/h
	Bearing    float64   `json:"bearing"` // degrees
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`

	Session DriverSession `gorm:"foreignKey:SessionID" json:"-"`
}
