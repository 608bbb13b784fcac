package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bus_tracker/internal/cache"
	"bus_tracker/internal/geo"
	"bus_tracker/internal/models"
	"bus_tracker/internal/tracking"
)

// seedCounts reports how many rows of each kind the fixture maps to.
type seedCounts struct {
	Stops, Routes, Buses, Users, Sessions, Fixes, Notifications int

	RouteIDs []uint
}

// seed upserts the fixture by natural key, so running it twice leaves one
// copy of everything. Driver fixes are rewritten relative to now on every
// run so the demo bus reads as live.
func seed(ctx context.Context, db *gorm.DB, f *fixture, now time.Time) (seedCounts, error) {
	var counts seedCounts
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stopIDs := make(map[string]uint, len(f.Stops))
		stopPoints := make(map[string]tracking.Point, len(f.Stops))
		for _, s := range f.Stops {
			stop := models.BusStop{}
			err := tx.Where(models.BusStop{Name: s.Name}).
				Attrs(models.BusStop{Location: s.Location, Latitude: s.Lat, Longitude: s.Lon}).
				FirstOrCreate(&stop).Error
			if err != nil {
				return fmt.Errorf("stop %q: %w", s.Name, err)
			}
			stopIDs[s.Name] = stop.ID
			stopPoints[s.Name] = tracking.Point{Lat: s.Lat, Lon: s.Lon}
			counts.Stops++
		}

		routeIDs := make(map[string]uint, len(f.Routes))
		for _, r := range f.Routes {
			points := make([]tracking.Point, 0, len(r.Stops))
			for _, rs := range r.Stops {
				points = append(points, stopPoints[rs.Stop])
			}
			shape, err := geo.LineStringWKB(points)
			if err != nil {
				return fmt.Errorf("route %q shape: %w", r.Name, err)
			}

			route := models.Route{}
			err = tx.Where(models.Route{Name: r.Name}).
				Attrs(models.Route{
					StartStopID: stopIDs[r.Stops[0].Stop],
					EndStopID:   stopIDs[r.Stops[len(r.Stops)-1].Stop],
					DistanceKm:  r.DistanceKm,
					Geometry:    shape,
				}).
				FirstOrCreate(&route).Error
			if err != nil {
				return fmt.Errorf("route %q: %w", r.Name, err)
			}

			for i, rs := range r.Stops {
				link := models.RouteStop{}
				err := tx.Where(models.RouteStop{RouteID: route.ID, StopOrder: i + 1}).
					Attrs(models.RouteStop{StopID: stopIDs[rs.Stop], ScheduledArrival: optional(rs.At)}).
					FirstOrCreate(&link).Error
				if err != nil {
					return fmt.Errorf("route %q stop %d: %w", r.Name, i+1, err)
				}
			}
			routeIDs[r.Name] = route.ID
			counts.RouteIDs = append(counts.RouteIDs, route.ID)
			counts.Routes++
		}

		for _, b := range f.Buses {
			attrs := models.Bus{
				Status:          models.ParseBusStatus(b.Status),
				Capacity:        b.Capacity,
				DriverName:      optional(b.DriverName),
				DriverPhone:     optional(b.DriverPhone),
				CurrentLocation: optional(b.CurrentLocation),
			}
			if id, ok := routeIDs[b.Route]; ok {
				attrs.RouteID = &id
			}
			if attrs.CurrentLocation != nil {
				attrs.LocationUpdatedAt = &now
			}
			bus := models.Bus{}
			if err := tx.Where(models.Bus{Number: b.Number}).Attrs(attrs).FirstOrCreate(&bus).Error; err != nil {
				return fmt.Errorf("bus %q: %w", b.Number, err)
			}
			counts.Buses++
		}

		userIDs := make(map[string]uint, len(f.Users))
		for _, u := range f.Users {
			user := models.User{}
			err := tx.Where(models.User{MobileNo: u.MobileNo}).First(&user).Error
			switch {
			case err == nil:
			case errors.Is(err, gorm.ErrRecordNotFound):
				hash, herr := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
				if herr != nil {
					return fmt.Errorf("hash password for %q: %w", u.MobileNo, herr)
				}
				user = models.User{
					Name:            u.Name,
					MobileNo:        u.MobileNo,
					Email:           optional(u.Email),
					PasswordHash:    string(hash),
					RegionOfCommute: optional(u.Region),
				}
				if u.Age > 0 {
					age := u.Age
					user.Age = &age
				}
				if err := tx.Create(&user).Error; err != nil {
					return fmt.Errorf("user %q: %w", u.MobileNo, err)
				}
			default:
				return fmt.Errorf("user %q: %w", u.MobileNo, err)
			}
			userIDs[u.MobileNo] = user.ID
			counts.Users++
		}

		for _, s := range f.Sessions {
			session := models.DriverSession{}
			err := tx.Where("bus_number = ? AND is_active = ? AND ended_at IS NULL", s.BusNumber, true).
				Attrs(models.DriverSession{
					BusNumber:  s.BusNumber,
					DriverName: s.DriverName,
					StartedAt:  now.Add(-time.Hour),
					IsActive:   true,
				}).
				FirstOrCreate(&session).Error
			if err != nil {
				return fmt.Errorf("session for %q: %w", s.BusNumber, err)
			}

			if err := tx.Where("session_id = ?", session.ID).Delete(&models.LocationUpdate{}).Error; err != nil {
				return fmt.Errorf("clear fixes for %q: %w", s.BusNumber, err)
			}
			for _, fix := range s.Fixes {
				update := models.LocationUpdate{
					SessionID:  session.ID,
					BusNumber:  s.BusNumber,
					Latitude:   fix.Lat,
					Longitude:  fix.Lon,
					Speed:      fix.Speed,
					Bearing:    fix.Bearing,
					RecordedAt: now.Add(-fix.Ago),
				}
				if err := tx.Create(&update).Error; err != nil {
					return fmt.Errorf("fix for %q: %w", s.BusNumber, err)
				}
				counts.Fixes++
			}
			counts.Sessions++
		}

		for i, n := range f.Notifications {
			note := models.Notification{}
			err := tx.Where(models.Notification{UserID: userIDs[n.MobileNo], Message: n.Message}).
				Attrs(models.Notification{Type: n.Type, SentAt: now.Add(-time.Duration(len(f.Notifications)-i) * time.Minute)}).
				FirstOrCreate(&note).Error
			if err != nil {
				return fmt.Errorf("notification %d: %w", i, err)
			}
			counts.Notifications++
		}
		return nil
	})
	if err != nil {
		return seedCounts{}, err
	}

	logrus.WithFields(logrus.Fields{
		"stops":         counts.Stops,
		"routes":        counts.Routes,
		"buses":         counts.Buses,
		"users":         counts.Users,
		"sessions":      counts.Sessions,
		"fixes":         counts.Fixes,
		"notifications": counts.Notifications,
	}).Info("Seed complete")
	return counts, nil
}

// invalidate drops the cached reference data the seed may have changed so
// running servers reload it from the database.
func invalidate(ctx context.Context, c cache.Cache, routeIDs []uint) error {
	keys := make([]string, 0, len(routeIDs)+1)
	keys = append(keys, cache.StopsKey)
	for _, id := range routeIDs {
		keys = append(keys, cache.RouteStopsKey(id))
	}
	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			return fmt.Errorf("invalidate %s: %w", key, err)
		}
	}
	logrus.WithField("keys", len(keys)).Info("Reference cache invalidated")
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
