package models

// BusStop is a named physical stop. Location is a free-text region label
// ("Sector 43, Chandigarh"), not a coordinate.
type BusStop struct {
	ID        uint    `gorm:"primaryKey" json:"stop_id"`
	Name      string  `gorm:"not null;index" json:"stop_name"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
