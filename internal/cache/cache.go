// Package cache stores immutable reference data (stops, route stop lists)
// as JSON, either in Redis shared by all replicas or in a process-local LRU.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache is a JSON value cache. A miss is (false, nil).
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// Key prefixes
const (
	StopsKey         = "cache:stops:all"
	routeStopsPrefix = "cache:route:stops:"
)

// RouteStopsKey is the cache key of a route's ordered stop list.
func RouteStopsKey(routeID uint) string {
	return routeStopsPrefix + strconv.FormatUint(uint64(routeID), 10)
}

// DefaultTTL applies when a zero TTL is configured.
const DefaultTTL = 10 * time.Minute

