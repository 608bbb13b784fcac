package realtime

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"bus_tracker/internal/metrics"
	"bus_tracker/internal/models"
	"bus_tracker/internal/tracking"
)

// BusSource is what the broadcaster reads.
type BusSource interface {
	ListActiveBuses(ctx context.Context) ([]models.Bus, error)
	LatestLiveFixes(ctx context.Context, busNumbers []string) (map[string]tracking.LiveFix, error)
}

// BusLocation is one entry of the bus-location-update payload. The first
// four fields are the raw bus row; the rest is the resolved position.
type BusLocation struct {
	BusID           uint             `json:"bus_id"`
	BusNumber       string           `json:"bus_number"`
	CurrentLocation *string          `json:"current_location"`
	Status          models.BusStatus `json:"status"`
	Latitude        float64          `json:"latitude"`
	Longitude       float64          `json:"longitude"`
	IsLive          bool             `json:"is_live"`
	Source          string           `json:"location_source"`
	RecordedAt      *time.Time       `json:"recorded_at,omitempty"`
}

// ActiveSnapshot loads every active bus and resolves its position. If the
// live feed lookup fails the snapshot is still returned, built from the
// bus rows alone.
func ActiveSnapshot(ctx context.Context, src BusSource, def tracking.Point) ([]BusLocation, error) {
	buses, err := src.ListActiveBuses(ctx)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(buses))
	for _, b := range buses {
		numbers = append(numbers, b.Number)
	}
	fixes, err := src.LatestLiveFixes(ctx, numbers)
	if err != nil {
		logrus.WithError(err).Warn("live feed unavailable, using bus snapshots")
		fixes = nil
	}

	out := make([]BusLocation, 0, len(buses))
	for _, b := range buses {
		var live *tracking.LiveFix
		if fix, ok := fixes[b.Number]; ok {
			live = &fix
		}
		loc := tracking.Resolve(tracking.Snapshot{
			CurrentLocation: b.CurrentLocation,
			UpdatedAt:       b.LocationUpdatedAt,
		}, live, def)

		out = append(out, BusLocation{
			BusID:           b.ID,
			BusNumber:       b.Number,
			CurrentLocation: b.CurrentLocation,
			Status:          models.ParseBusStatus(string(b.Status)),
			Latitude:        loc.Lat,
			Longitude:       loc.Lon,
			IsLive:          loc.IsLive(),
			Source:          loc.Kind.String(),
			RecordedAt:      loc.RecordedAt,
		})
	}
	return out, nil
}

// Broadcaster pushes the active-bus snapshot to every connection.
type Broadcaster struct {
	store BusSource
	hub   *Hub
	def   tracking.Point
	task  Periodic
}

func NewBroadcaster(store BusSource, hub *Hub, def tracking.Point, interval, timeout time.Duration, nr *newrelic.Application) *Broadcaster {
	b := &Broadcaster{store: store, hub: hub, def: def}
	b.task = Periodic{
		Name:     "location-broadcaster",
		Interval: interval,
		Timeout:  timeout,
		Tick:     b.Tick,
		NewRelic: nr,
	}
	return b
}

// Run blocks until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) { b.task.Run(ctx) }

// Tick performs one broadcast cycle. It is a no-op while nobody is connected.
func (b *Broadcaster) Tick(ctx context.Context) error {
	if b.hub.ConnectionCount() == 0 {
		return nil
	}
	snapshot, err := ActiveSnapshot(ctx, b.store, b.def)
	if err != nil {
		return err
	}
	sent, err := b.hub.Broadcast(EventBusLocationUpdate, snapshot)
	if err != nil {
		return err
	}
	metrics.TaskDelivered.WithLabelValues(b.task.Name).Add(float64(sent))
	logrus.WithFields(logrus.Fields{
		"buses":   len(snapshot),
		"clients": sent,
	}).Debug("bus locations broadcast")
	return nil
}
