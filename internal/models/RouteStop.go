package models

// RouteStop places a stop on a route. StopOrder is explicit; insertion
// order carries no meaning.
type RouteStop struct {
	ID               uint    `gorm:"primaryKey" json:"-"`
	RouteID          uint    `gorm:"uniqueIndex:idx_route_stop_order;not null" json:"route_id"`
	StopID           uint    `gorm:"not null" json:"stop_id"`
	StopOrder        int     `gorm:"uniqueIndex:idx_route_stop_order;not null" json:"stop_order"`
	ScheduledArrival *string `json:"scheduled_arrival,omitempty"`

	Stop BusStop `gorm:"foreignKey:StopID" json:"-"`
}
