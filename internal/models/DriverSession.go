package models

import "time"

// DriverSession is a driver's shift on a bus, keyed by bus number. While
// IsActive, its LocationUpdates are the authoritative position of the bus.
type DriverSession struct {
	ID          uint       `gorm:"primaryKey" json:"session_id"`
	BusNumber   string     `gorm:"index;not null" json:"bus_number"`
	DriverName  string     `json:"driver_name"`
	DriverPhone *string    `json:"driver_phone,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	IsActive    bool       `gorm:"index" json:"is_active"`
}
