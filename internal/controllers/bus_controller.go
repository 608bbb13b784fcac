package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/geo"
	"bus_tracker/internal/models"
	"bus_tracker/internal/realtime"
	"bus_tracker/internal/search"
	"bus_tracker/internal/tracking"
)

// BusStore is the read side used by the bus endpoints.
type BusStore interface {
	realtime.BusSource
	ListBuses(ctx context.Context) ([]models.BusView, error)
	FindBus(ctx context.Context, id uint) (models.BusView, error)
	ListStops(ctx context.Context) ([]models.BusStop, error)
	FindRoute(ctx context.Context, id uint) (models.Route, error)
	RouteStops(ctx context.Context, routeID uint) ([]models.RouteStopView, error)
	LatestLiveFix(ctx context.Context, busNumber string) (*tracking.LiveFix, error)
}

// Searcher runs a route search.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Result, error)
}

type BusController struct {
	store    BusStore
	searcher Searcher
	def      tracking.Point
}

func NewBusController(store BusStore, searcher Searcher, def tracking.Point) *BusController {
	return &BusController{store: store, searcher: searcher, def: def}
}

// ListBuses returns every bus with its route and endpoint names.
func (b *BusController) ListBuses(c *gin.Context) {
	buses, err := b.store.ListBuses(c.Request.Context())
	if err != nil {
		respondError(c, "list buses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buses": buses})
}

// Search finds buses between two free-text places.
func (b *BusController) Search(c *gin.Context) {
	mode, err := search.ParseMode(c.Query("match"))
	if err != nil {
		respondError(c, "search", err)
		return
	}

	res, err := b.searcher.Search(c.Request.Context(), search.Query{
		Source:      c.Query("source"),
		Destination: c.Query("destination"),
		Mode:        mode,
	})
	if err != nil {
		respondError(c, "search", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"buses":     res.Buses(),
		"direct":    len(res.Direct),
		"alternate": len(res.Alternate),
	})
}

func (b *BusController) ListStops(c *gin.Context) {
	stops, err := b.store.ListStops(c.Request.Context())
	if err != nil {
		respondError(c, "list stops", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stops": stops})
}

// Locations returns the same snapshot the broadcaster pushes.
func (b *BusController) Locations(c *gin.Context) {
	items, err := realtime.ActiveSnapshot(c.Request.Context(), b.store, b.def)
	if err != nil {
		respondError(c, "bus locations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buses": items})
}

func (b *BusController) Details(c *gin.Context) {
	id, err := parseID(c, "busId")
	if err != nil {
		respondError(c, "bus details", err)
		return
	}
	bus, err := b.store.FindBus(c.Request.Context(), id)
	if err != nil {
		respondError(c, "bus details", err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

// LocationResponse is the effective position of one bus.
type LocationResponse struct {
	BusID           uint       `json:"bus_id"`
	BusNumber       string     `json:"bus_number"`
	Status          string     `json:"status"`
	CurrentLocation *string    `json:"current_location"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	IsLive          bool       `json:"is_live"`
	Source          string     `json:"location_source"`
	RecordedAt      *time.Time `json:"recorded_at,omitempty"`
	Speed           *float64   `json:"speed,omitempty"`
	Bearing         *float64   `json:"bearing,omitempty"`
	DriverName      string     `json:"driver_name,omitempty"`
}

// Location resolves a bus's position, preferring the live driver feed.
func (b *BusController) Location(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := parseID(c, "busId")
	if err != nil {
		respondError(c, "bus location", err)
		return
	}
	bus, err := b.store.FindBus(ctx, id)
	if err != nil {
		respondError(c, "bus location", err)
		return
	}

	live, err := b.store.LatestLiveFix(ctx, bus.Number)
	if err != nil {
		logrus.WithError(err).WithField("bus_number", bus.Number).Warn("live feed unavailable, using bus snapshot")
		live = nil
	}

	loc := tracking.Resolve(tracking.Snapshot{
		CurrentLocation: bus.CurrentLocation,
		UpdatedAt:       bus.LocationUpdatedAt,
	}, live, b.def)

	c.JSON(http.StatusOK, LocationResponse{
		BusID:           bus.ID,
		BusNumber:       bus.Number,
		Status:          string(bus.Status),
		CurrentLocation: bus.CurrentLocation,
		Latitude:        loc.Lat,
		Longitude:       loc.Lon,
		IsLive:          loc.IsLive(),
		Source:          loc.Kind.String(),
		RecordedAt:      loc.RecordedAt,
		Speed:           loc.Speed,
		Bearing:         loc.Bearing,
		DriverName:      loc.DriverName,
	})
}

// RouteResponse is a bus's route with its ordered stops and shape.
type RouteResponse struct {
	BusID     uint                   `json:"bus_id"`
	BusNumber string                 `json:"bus_number"`
	RouteID   uint                   `json:"route_id"`
	RouteName string                 `json:"route_name"`
	Distance  float64                `json:"distance"`
	StartStop string                 `json:"start_stop"`
	EndStop   string                 `json:"end_stop"`
	Geometry  json.RawMessage        `json:"geometry,omitempty"` // GeoJSON LineString
	Stops     []models.RouteStopView `json:"stops"`
}

func (b *BusController) Route(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := parseID(c, "busId")
	if err != nil {
		respondError(c, "bus route", err)
		return
	}
	bus, err := b.store.FindBus(ctx, id)
	if err != nil {
		respondError(c, "bus route", err)
		return
	}
	if bus.RouteID == nil {
		respondError(c, "bus route", apperr.NotFound("route for bus", bus.Number))
		return
	}

	route, err := b.store.FindRoute(ctx, *bus.RouteID)
	if err != nil {
		respondError(c, "bus route", err)
		return
	}
	stops, err := b.store.RouteStops(ctx, route.ID)
	if err != nil {
		respondError(c, "bus route", err)
		return
	}

	shape, err := geo.WKBToGeoJSON(route.Geometry)
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Warn("route geometry unreadable")
		shape = nil
	}
	if stops == nil {
		stops = []models.RouteStopView{}
	}

	c.JSON(http.StatusOK, RouteResponse{
		BusID:     bus.ID,
		BusNumber: bus.Number,
		RouteID:   route.ID,
		RouteName: route.Name,
		Distance:  route.DistanceKm,
		StartStop: route.StartStop.Name,
		EndStop:   route.EndStop.Name,
		Geometry:  shape,
		Stops:     stops,
	})
}
