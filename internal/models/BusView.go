package models

import "time"

// BusView is a bus joined with its route and the route's endpoint stops.
// Route-derived fields are nil when the bus has no route.
type BusView struct {
	ID                uint       `json:"bus_id"`
	Number            string     `json:"bus_number"`
	RouteID           *uint      `json:"route_id"`
	Status            BusStatus  `json:"status"`
	CurrentLocation   *string    `json:"current_location"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
	Capacity          int        `json:"capacity"`
	DriverName        *string    `json:"driver_name,omitempty"`
	DriverPhone       *string    `json:"driver_phone,omitempty"`

	RouteName   *string  `json:"route_name"`
	Distance    *float64 `json:"distance"`
	StartStop   *string  `json:"start_stop"`
	EndStop     *string  `json:"end_stop"`
	StartRegion *string  `json:"start_location,omitempty"`
	EndRegion   *string  `json:"end_location,omitempty"`
}

// RouteStopView is one stop of a route in travel order.
type RouteStopView struct {
	StopOrder        int     `json:"stop_order"`
	StopID           uint    `json:"stop_id"`
	StopName         string  `json:"stop_name"`
	Location         string  `json:"location"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	ScheduledArrival *string `json:"scheduled_arrival,omitempty"`
}
