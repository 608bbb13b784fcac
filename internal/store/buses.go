package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/cache"
	"bus_tracker/internal/models"
	"bus_tracker/internal/tracking"
)

const busViewColumns = `b.id, b.number, b.route_id, b.status, b.current_location,
	b.location_updated_at, b.capacity, b.driver_name, b.driver_phone,
	r.name AS route_name, r.distance_km AS distance,
	s1.name AS start_stop, s2.name AS end_stop,
	s1.location AS start_region, s2.location AS end_region`

// busViews starts a query over buses joined to their route and endpoints.
// With inner set, buses without a (resolvable) route are dropped.
func (s *Store) busViews(ctx context.Context, inner bool) *gorm.DB {
	join := "LEFT JOIN"
	if inner {
		join = "JOIN"
	}
	return s.conn(ctx).
		Table("buses AS b").
		Select(busViewColumns).
		Joins(join + " routes r ON r.id = b.route_id").
		Joins(join + " bus_stops s1 ON s1.id = r.start_stop_id").
		Joins(join + " bus_stops s2 ON s2.id = r.end_stop_id")
}

func normalizeViews(views []models.BusView) []models.BusView {
	for i := range views {
		views[i].Status = models.ParseBusStatus(string(views[i].Status))
	}
	return views
}

// ListBuses returns every bus with its route and endpoint names.
func (s *Store) ListBuses(ctx context.Context) ([]models.BusView, error) {
	var views []models.BusView
	if err := s.busViews(ctx, false).Order("b.number").Scan(&views).Error; err != nil {
		return nil, apperr.Transient("list buses", err)
	}
	return normalizeViews(views), nil
}

// FindBus returns one bus view by id.
func (s *Store) FindBus(ctx context.Context, id uint) (models.BusView, error) {
	var views []models.BusView
	if err := s.busViews(ctx, false).Where("b.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return models.BusView{}, apperr.Transient("find bus", err)
	}
	if len(views) == 0 {
		return models.BusView{}, apperr.NotFound("bus", id)
	}
	return normalizeViews(views)[0], nil
}

// SearchCandidates returns buses with a route whose start stop matches
// source or whose end stop matches destination. Both terms must already be
// lower-cased. With region set, the stops' location labels match as well.
// Classification happens in the caller; this is only a prefilter.
func (s *Store) SearchCandidates(ctx context.Context, source, destination string, region bool) ([]models.BusView, error) {
	src := "%" + EscapeLike(source) + "%"
	dst := "%" + EscapeLike(destination) + "%"

	startCond := "LOWER(s1.name) LIKE ? ESCAPE '\\'"
	endCond := "LOWER(s2.name) LIKE ? ESCAPE '\\'"
	args := []any{src, dst}
	if region {
		startCond = "(" + startCond + " OR LOWER(s1.location) LIKE ? ESCAPE '\\')"
		endCond = "(" + endCond + " OR LOWER(s2.location) LIKE ? ESCAPE '\\')"
		args = []any{src, src, dst, dst}
	}

	var views []models.BusView
	err := s.busViews(ctx, true).
		Where("b.route_id IS NOT NULL").
		Where(startCond+" OR "+endCond, args...).
		Order("b.number").
		Scan(&views).Error
	if err != nil {
		return nil, apperr.Transient("search buses", err)
	}
	return normalizeViews(views), nil
}

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListActiveBuses returns the rows the location broadcaster pushes. Status
// is compared the way ParseBusStatus reads it, so search and the broadcast
// agree on which buses are active.
func (s *Store) ListActiveBuses(ctx context.Context) ([]models.Bus, error) {
	var buses []models.Bus
	err := s.conn(ctx).
		Select("id", "number", "current_location", "location_updated_at", "status").
		Where("LOWER(TRIM(status)) = ?", models.BusStatusActive).
		Order("number").
		Find(&buses).Error
	if err != nil {
		return nil, apperr.Transient("list active buses", err)
	}
	for i := range buses {
		buses[i].Status = models.ParseBusStatus(string(buses[i].Status))
	}
	return buses, nil
}

// ListStops returns every bus stop ordered by name.
func (s *Store) ListStops(ctx context.Context) ([]models.BusStop, error) {
	var stops []models.BusStop
	if s.cacheGet(ctx, cache.StopsKey, &stops) {
		return stops, nil
	}
	if err := s.conn(ctx).Order("name").Find(&stops).Error; err != nil {
		return nil, apperr.Transient("list stops", err)
	}
	s.cacheSet(ctx, cache.StopsKey, stops)
	return stops, nil
}

// FindRoute loads a route with its endpoint stops.
func (s *Store) FindRoute(ctx context.Context, id uint) (models.Route, error) {
	var route models.Route
	err := s.conn(ctx).Preload("StartStop").Preload("EndStop").First(&route, id).Error
	return route, first(err, "find route", "route", id)
}

// RouteStops returns a route's stops ordered by stop_order.
func (s *Store) RouteStops(ctx context.Context, routeID uint) ([]models.RouteStopView, error) {
	key := cache.RouteStopsKey(routeID)
	var stops []models.RouteStopView
	if s.cacheGet(ctx, key, &stops) {
		return stops, nil
	}
	err := s.conn(ctx).
		Table("route_stops AS rs").
		Select(`rs.stop_order, rs.stop_id, rs.scheduled_arrival,
			st.name AS stop_name, st.location, st.latitude, st.longitude`).
		Joins("JOIN bus_stops st ON st.id = rs.stop_id").
		Where("rs.route_id = ?", routeID).
		Order("rs.stop_order").
		Scan(&stops).Error
	if err != nil {
		return nil, apperr.Transient("list route stops", err)
	}
	s.cacheSet(ctx, key, stops)
	return stops, nil
}

type liveFixRow struct {
	SessionID  uint
	BusNumber  string
	DriverName string
	Latitude   float64
	Longitude  float64
	Speed      float64
	Bearing    float64
	RecordedAt time.Time
}

// LatestLiveFixes returns, per bus number, the newest location update of an
// active driver session. Buses without an active session are absent.
func (s *Store) LatestLiveFixes(ctx context.Context, busNumbers []string) (map[string]tracking.LiveFix, error) {
	fixes := make(map[string]tracking.LiveFix, len(busNumbers))
	if len(busNumbers) == 0 {
		return fixes, nil
	}

	var rows []liveFixRow
	err := s.conn(ctx).
		Table("location_updates AS lu").
		Select(`lu.session_id, ds.bus_number, ds.driver_name, lu.latitude,
			lu.longitude, lu.speed, lu.bearing, lu.recorded_at`).
		Joins("JOIN driver_sessions ds ON ds.id = lu.session_id").
		Where("ds.is_active = ? AND ds.ended_at IS NULL", true).
		Where("ds.bus_number IN ?", busNumbers).
		Where("lu.recorded_at = (SELECT MAX(l2.recorded_at) FROM location_updates l2 WHERE l2.session_id = lu.session_id)").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Transient("latest live fixes", err)
	}

	// A bus may have overlapping active sessions; keep the newest fix.
	for _, r := range rows {
		if cur, ok := fixes[r.BusNumber]; ok && !r.RecordedAt.After(cur.RecordedAt) {
			continue
		}
		fixes[r.BusNumber] = tracking.LiveFix{
			SessionID:  r.SessionID,
			BusNumber:  r.BusNumber,
			DriverName: r.DriverName,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			Speed:      r.Speed,
			Bearing:    r.Bearing,
			RecordedAt: r.RecordedAt,
		}
	}
	return fixes, nil
}

// LatestLiveFix is LatestLiveFixes for a single bus; nil when the bus has no
// active session.
func (s *Store) LatestLiveFix(ctx context.Context, busNumber string) (*tracking.LiveFix, error) {
	fixes, err := s.LatestLiveFixes(ctx, []string{busNumber})
	if err != nil {
		return nil, err
	}
	fix, ok := fixes[busNumber]
	if !ok {
		return nil, nil
	}
	return &fix, nil
}
