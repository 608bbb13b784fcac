// Package search pairs free-text source/destination input with routes.
//
// The store narrows candidates in SQL; Classify then decides the bucket of
// every candidate in Go with the same case-insensitive substring rule, so
// the result never depends on collation quirks of the database.
package search

import (
	"context"
	"sort"
	"strings"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
)

// Mode selects which stop fields a term is compared with.
type Mode string

const (
	ModeName   Mode = "name"   // stop name only
	ModeRegion Mode = "region" // stop name or location label
)

// ParseMode maps the ?match= query value onto a Mode. Empty means ModeName.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeName:
		return ModeName, nil
	case ModeRegion:
		return ModeRegion, nil
	default:
		return "", apperr.Validation("unknown match mode %q", s)
	}
}

// MatchType is the bucket a bus landed in.
type MatchType string

const (
	Direct    MatchType = "direct"
	Alternate MatchType = "alternate"
)

// Query is a search request.
type Query struct {
	Source      string
	Destination string
	Mode        Mode
}

// Match is a bus together with its bucket.
type Match struct {
	models.BusView
	MatchType MatchType `json:"match_type"`
}

// Result holds two disjoint buckets, each ordered by bus number.
type Result struct {
	Direct    []Match
	Alternate []Match
}

// Buses returns direct matches followed by alternate ones.
func (r Result) Buses() []Match {
	out := make([]Match, 0, len(r.Direct)+len(r.Alternate))
	out = append(out, r.Direct...)
	return append(out, r.Alternate...)
}

// Candidates is the store query the matcher depends on.
type Candidates interface {
	SearchCandidates(ctx context.Context, source, destination string, region bool) ([]models.BusView, error)
}

// Matcher runs searches against a candidate source.
type Matcher struct {
	store Candidates
}

func NewMatcher(store Candidates) *Matcher {
	return &Matcher{store: store}
}

// Search validates q, loads candidates and classifies them.
func (m *Matcher) Search(ctx context.Context, q Query) (Result, error) {
	q, err := Normalize(q)
	if err != nil {
		return Result{}, err
	}
	views, err := m.store.SearchCandidates(ctx, q.Source, q.Destination, q.Mode == ModeRegion)
	if err != nil {
		return Result{}, err
	}
	return Classify(views, q), nil
}

// Normalize trims and lower-cases both terms and rejects empty or identical
// input.
func Normalize(q Query) (Query, error) {
	q.Source = strings.ToLower(strings.TrimSpace(q.Source))
	q.Destination = strings.ToLower(strings.TrimSpace(q.Destination))
	if q.Mode == "" {
		q.Mode = ModeName
	}
	if q.Source == "" || q.Destination == "" {
		return q, apperr.Validation("source and destination are required")
	}
	if q.Source == q.Destination {
		return q, apperr.Validation("source and destination must be different")
	}
	return q, nil
}

// Classify buckets candidates for an already normalised query.
//
// Direct: start matches source, end matches destination and the bus is
// active. Alternate: exactly one of the two holds, any status. A bus that
// matches both ends but is not active is in neither bucket. Buses without a
// route are skipped and each bus id appears at most once.
func Classify(views []models.BusView, q Query) Result {
	region := q.Mode == ModeRegion
	seen := make(map[uint]struct{}, len(views))
	var res Result

	for _, v := range views {
		if v.RouteID == nil {
			continue
		}
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}

		start := matches(q.Source, v.StartStop, v.StartRegion, region)
		end := matches(q.Destination, v.EndStop, v.EndRegion, region)

		switch {
		case start && end:
			if v.Status == models.BusStatusActive {
				res.Direct = append(res.Direct, Match{BusView: v, MatchType: Direct})
			}
		case start != end:
			res.Alternate = append(res.Alternate, Match{BusView: v, MatchType: Alternate})
		}
	}

	sortByNumber(res.Direct)
	sortByNumber(res.Alternate)
	return res
}

func matches(term string, name, label *string, region bool) bool {
	if name != nil && strings.Contains(strings.ToLower(*name), term) {
		return true
	}
	return region && label != nil && strings.Contains(strings.ToLower(*label), term)
}

func sortByNumber(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Number < ms[j].Number })
}
