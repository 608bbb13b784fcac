// Package tracking decides where a bus should be drawn. A bus has up to two
// position sources: the live driver-session feed and the current_location
// snapshot on the bus row. Resolve is the only place that ranks them.
package tracking

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags where a resolved location came from.
type Kind int

const (
	NoData Kind = iota // neither source usable, default coordinate
	Stale              // bus.current_location snapshot
	Live               // latest update of an active driver session
)

func (k Kind) String() string {
	switch k {
	case Live:
		return "live"
	case Stale:
		return "stale"
	default:
		return "no_data"
	}
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Snapshot is the position stored on the bus row itself.
type Snapshot struct {
	CurrentLocation *string
	UpdatedAt       *time.Time
}

// LiveFix is the newest LocationUpdate of an active DriverSession.
type LiveFix struct {
	SessionID  uint
	BusNumber  string
	DriverName string
	Latitude   float64
	Longitude  float64
	Speed      float64
	Bearing    float64
	RecordedAt time.Time
}

// Location is the effective position of a bus.
type Location struct {
	Kind       Kind
	Lat        float64
	Lon        float64
	RecordedAt *time.Time
	Speed      *float64
	Bearing    *float64
	DriverName string
}

// IsLive reports whether the position comes from an active driver session.
func (l Location) IsLive() bool { return l.Kind == Live }

// Resolve picks the effective location. An active session fix always wins;
// then a well-formed snapshot; otherwise def with Kind NoData.
func Resolve(snap Snapshot, live *LiveFix, def Point) Location {
	if live != nil && validLat(live.Latitude) && validLon(live.Longitude) {
		at := live.RecordedAt
		speed, bearing := live.Speed, live.Bearing
		return Location{
			Kind:       Live,
			Lat:        live.Latitude,
			Lon:        live.Longitude,
			RecordedAt: &at,
			Speed:      &speed,
			Bearing:    &bearing,
			DriverName: live.DriverName,
		}
	}

	if snap.CurrentLocation != nil {
		if p, ok := ParseLatLon(*snap.CurrentLocation); ok {
			return Location{
				Kind:       Stale,
				Lat:        p.Lat,
				Lon:        p.Lon,
				RecordedAt: snap.UpdatedAt,
			}
		}
	}

	return Location{Kind: NoData, Lat: def.Lat, Lon: def.Lon}
}

// ParseLatLon parses a "lat,lon" pair. Surrounding whitespace and
// parentheses are tolerated; out-of-range or non-finite values are rejected.
func ParseLatLon(s string) (Point, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, false
	}
	if !validLat(lat) || !validLon(lon) {
		return Point{}, false
	}
	return Point{Lat: lat, Lon: lon}, true
}

func validLat(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -90 && v <= 90
}

func validLon(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -180 && v <= 180
}
