// Package geo converts route shapes between stop coordinates, the WKB
// stored in routes.geometry and the GeoJSON served to clients.
package geo

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"bus_tracker/internal/tracking"
)

// SRID of every stored geometry.
const SRID = 4326

// ErrTooFewPoints is returned when a line would have fewer than two vertices.
var ErrTooFewPoints = errors.New("geo: a line string needs at least two points")

// LineStringWKB builds a WKB LINESTRING through points, in order.
// Coordinates are stored lon/lat (x/y).
func LineStringWKB(points []tracking.Point) ([]byte, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	coords := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		coords = append(coords, geom.Coord{p.Lon, p.Lat})
	}
	ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, err
	}
	ls.SetSRID(SRID)
	return wkb.Marshal(ls, binary.LittleEndian)
}

// WKBToGeoJSON converts stored WKB to a GeoJSON geometry. Empty input
// yields nil.
func WKBToGeoJSON(b []byte) (json.RawMessage, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	out, err := gjson.Marshal(g)
	if err != nil {
		return nil, err
	}
	return out, nil
}
