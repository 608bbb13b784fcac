package models

// Route represents a service path between two stops.
// Intermediate stops live in RouteStop and are ordered by StopOrder.
type Route struct {
	ID          uint    `gorm:"primaryKey" json:"route_id"`
	Name        string  `gorm:"not null" json:"route_name"`
	StartStopID uint    `gorm:"index" json:"start_stop_id"`
	EndStopID   uint    `gorm:"index" json:"end_stop_id"`
	DistanceKm  float64 `json:"distance"`

	// Geometry is the route shape as a WKB LINESTRING (SRID 4326), optional.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	StartStop BusStop     `gorm:"foreignKey:StartStopID" json:"-"`
	EndStop   BusStop     `gorm:"foreignKey:EndStopID" json:"-"`
	Stops     []RouteStop `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
