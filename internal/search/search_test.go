package search

import (
	"context"
	"errors"
	"testing"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
)

type fakeCandidates struct {
	views []models.BusView
	err   error
	calls int

	gotSource, gotDestination string
	gotRegion                 bool
}

func (f *fakeCandidates) SearchCandidates(_ context.Context, source, destination string, region bool) ([]models.BusView, error) {
	f.calls++
	f.gotSource, f.gotDestination, f.gotRegion = source, destination, region
	return f.views, f.err
}

func ptr[T any](v T) *T { return &v }

func view(id uint, number string, status models.BusStatus, start, end string) models.BusView {
	return models.BusView{
		ID:          id,
		Number:      number,
		RouteID:     ptr(uint(1)),
		Status:      status,
		RouteName:   ptr(start + " - " + end),
		Distance:    ptr(98.5),
		StartStop:   ptr(start),
		EndStop:     ptr(end),
		StartRegion: ptr("Chandigarh"),
		EndRegion:   ptr("Punjab"),
	}
}

func numbers(ms []Match) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Number)
	}
	return out
}

func TestSearch_SeedScenarioDirect(t *testing.T) {
	store := &fakeCandidates{views: []models.BusView{
		view(1, "PB20AB1234", models.BusStatusActive, "ISBT Chandigarh", "Ludhiana Bus Stand"),
	}}
	m := NewMatcher(store)

	res, err := m.Search(context.Background(), Query{Source: "ISBT Chandigarh", Destination: "Ludhiana Bus Stand"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Direct) != 1 || res.Direct[0].Number != "PB20AB1234" {
		t.Fatalf("expected PB20AB1234 in direct, got %v", numbers(res.Direct))
	}
	if len(res.Alternate) != 0 {
		t.Fatalf("expected no alternates, got %v", numbers(res.Alternate))
	}
	if res.Direct[0].MatchType != Direct {
		t.Errorf("match type = %q", res.Direct[0].MatchType)
	}
	if store.gotSource != "isbt chandigarh" || store.gotDestination != "ludhiana bus stand" || store.gotRegion {
		t.Errorf("store called with %q %q %v", store.gotSource, store.gotDestination, store.gotRegion)
	}
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{"missing source", Query{Destination: "Ludhiana"}},
		{"missing destination", Query{Source: "ISBT"}},
		{"whitespace only", Query{Source: "   ", Destination: "\t"}},
		{"identical", Query{Source: "Kharar", Destination: " kharar "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeCandidates{}
			_, err := NewMatcher(store).Search(context.Background(), tt.q)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if store.calls != 0 {
				t.Fatalf("store queried for invalid input")
			}
		})
	}
}

func TestSearch_StoreErrorPropagates(t *testing.T) {
	store := &fakeCandidates{err: apperr.Transient("search buses", errors.New("connection refused"))}
	_, err := NewMatcher(store).Search(context.Background(), Query{Source: "a", Destination: "b"})
	if !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	q := Query{Source: "isbt", Destination: "ludhiana", Mode: ModeName}

	noRoute := view(6, "PB65ZZ9999", models.BusStatusActive, "ISBT Chandigarh", "Ludhiana Bus Stand")
	noRoute.RouteID = nil

	views := []models.BusView{
		view(1, "PB20AB1234", models.BusStatusActive, "ISBT Chandigarh", "Ludhiana Bus Stand"),
		view(2, "PB10CD5678", models.BusStatusMaintenance, "ISBT Chandigarh", "Ludhiana Bus Stand"),
		view(3, "CH01GA0001", models.BusStatusActive, "ISBT Sector 43", "Kharar"),
		view(4, "PB08XY4321", models.BusStatusInactive, "Jalandhar", "Ludhiana Bus Stand"),
		view(5, "HR68AA0002", models.BusStatusActive, "Panchkula", "Ambala"),
		noRoute,
		view(1, "PB20AB1234", models.BusStatusActive, "ISBT Chandigarh", "Ludhiana Bus Stand"),
	}

	res := Classify(views, q)

	if got := numbers(res.Direct); len(got) != 1 || got[0] != "PB20AB1234" {
		t.Fatalf("direct = %v", got)
	}
	want := []string{"CH01GA0001", "PB08XY4321"}
	got := numbers(res.Alternate)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("alternate = %v, want %v", got, want)
	}
	for _, m := range res.Alternate {
		if m.MatchType != Alternate {
			t.Errorf("%s has match type %q", m.Number, m.MatchType)
		}
	}
}

func TestClassify_Properties(t *testing.T) {
	q := Query{Source: "chandigarh", Destination: "bus stand"}
	views := []models.BusView{
		view(1, "A", models.BusStatusActive, "ISBT Chandigarh", "Ludhiana Bus Stand"),
		view(2, "B", models.BusStatusActive, "Chandigarh Sector 17", "Patiala"),
		view(3, "C", models.BusStatusInactive, "Mohali", "Amritsar Bus Stand"),
		view(4, "D", models.BusStatusUnknown, "ISBT Chandigarh", "Ludhiana Bus Stand"),
		view(5, "E", models.BusStatusActive, "Zirakpur", "Rajpura"),
	}

	res := Classify(views, q)

	seen := map[uint]bool{}
	for _, m := range res.Direct {
		if !matches(q.Source, m.StartStop, nil, false) || !matches(q.Destination, m.EndStop, nil, false) {
			t.Errorf("direct bus %s does not match both ends", m.Number)
		}
		if m.Status != models.BusStatusActive {
			t.Errorf("direct bus %s is %s", m.Number, m.Status)
		}
		seen[m.ID] = true
	}
	for _, m := range res.Alternate {
		s := matches(q.Source, m.StartStop, nil, false)
		e := matches(q.Destination, m.EndStop, nil, false)
		if s == e {
			t.Errorf("alternate bus %s matches %v/%v", m.Number, s, e)
		}
		if seen[m.ID] {
			t.Errorf("bus %s in both buckets", m.Number)
		}
	}
	if len(res.Direct) != 1 || len(res.Alternate) != 2 {
		t.Fatalf("direct=%v alternate=%v", numbers(res.Direct), numbers(res.Alternate))
	}
}

func TestClassify_RegionMode(t *testing.T) {
	v := view(1, "PB20AB1234", models.BusStatusActive, "ISBT Chandigarh", "Ludhiana Bus Stand")

	byName := Classify([]models.BusView{v}, Query{Source: "chandigarh", Destination: "punjab", Mode: ModeName})
	if len(byName.Direct) != 0 || len(byName.Alternate) != 1 {
		t.Fatalf("name mode: direct=%v alternate=%v", numbers(byName.Direct), numbers(byName.Alternate))
	}

	byRegion := Classify([]models.BusView{v}, Query{Source: "chandigarh", Destination: "punjab", Mode: ModeRegion})
	if len(byRegion.Direct) != 1 {
		t.Fatalf("region mode: direct=%v", numbers(byRegion.Direct))
	}
}

func TestClassify_Empty(t *testing.T) {
	res := Classify(nil, Query{Source: "a", Destination: "b"})
	if len(res.Direct) != 0 || len(res.Alternate) != 0 || len(res.Buses()) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestResultBuses_DirectFirst(t *testing.T) {
	res := Result{
		Direct:    []Match{{BusView: models.BusView{Number: "Z"}, MatchType: Direct}},
		Alternate: []Match{{BusView: models.BusView{Number: "A"}, MatchType: Alternate}},
	}
	got := numbers(res.Buses())
	if len(got) != 2 || got[0] != "Z" || got[1] != "A" {
		t.Fatalf("Buses() = %v", got)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeName, "name": ModeName, " Region ": ModeRegion} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("fuzzy"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
