package models

import (
	"strings"
	"time"
)

// BusStatus is the operational state of a bus.
type BusStatus string

const (
	BusStatusActive      BusStatus = "active"
	BusStatusInactive    BusStatus = "inactive"
	BusStatusMaintenance BusStatus = "maintenance"
	BusStatusUnknown     BusStatus = "unknown"
)

// ParseBusStatus maps a stored status string onto the enum. Anything
// unrecognised is BusStatusUnknown.
func ParseBusStatus(s string) BusStatus {
	switch st := BusStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BusStatusActive, BusStatusInactive, BusStatusMaintenance:
		return st
	default:
		return BusStatusUnknown
	}
}

// Bus is a physical vehicle. CurrentLocation is the "lat,lon" snapshot
// written by the driver-side process; it may be missing or malformed.
type Bus struct {
	ID                uint       `gorm:"primaryKey" json:"bus_id"`
	Number            string     `gorm:"uniqueIndex;not null" json:"bus_number"`
	RouteID           *uint      `gorm:"index" json:"route_id"`
	Status            BusStatus  `gorm:"type:varchar(16);not null;default:'inactive';index" json:"status"`
	CurrentLocation   *string    `json:"current_location"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
	Capacity          int        `json:"capacity"`
	DriverName        *string    `json:"driver_name,omitempty"`
	DriverPhone       *string    `json:"driver_phone,omitempty"`

	Route *Route `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
}

func (Bus) TableName() string { return "buses" }
