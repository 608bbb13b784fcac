// Package store is the gorm-backed data access layer. Every method takes a
// context, and failures come back wrapped in apperr kinds so handlers and
// periodic tasks can classify them without looking at driver errors.
package store

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/cache"
	"bus_tracker/internal/models"
)

// Store wraps a *gorm.DB. The underlying *sql.DB is a pool and is safe for
// concurrent use by request handlers and background tasks.
type Store struct {
	db    *gorm.DB
	cache cache.Cache
}

// New returns a Store. c may be nil, in which case reference data is always
// read from the database.
func New(db *gorm.DB, c cache.Cache) *Store {
	return &Store{db: db, cache: c}
}

// DB exposes the handle for seeding and tests.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	logrus.Info("Database migration completed")
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperr.Transient("ping", err)
	}
	return apperr.Transient("ping", sqlDB.PingContext(ctx))
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// first maps gorm.ErrRecordNotFound to apperr.ErrNotFound.
func first(err error, op, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return apperr.Transient(op, err)
}

func (s *Store) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	return ok
}

func (s *Store) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
