package main

import (
	_ "embed"
	"fmt"
	"time"

	yaml "gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoFixture []byte

type fixture struct {
	Stops         []stopFixture         `yaml:"stops"`
	Routes        []routeFixture        `yaml:"routes"`
	Buses         []busFixture          `yaml:"buses"`
	Users         []userFixture         `yaml:"users"`
	Sessions      []sessionFixture      `yaml:"sessions"`
	Notifications []notificationFixture `yaml:"notifications"`
}

type stopFixture struct {
	Name     string  `yaml:"name"`
	Location string  `yaml:"location"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
}

type routeFixture struct {
	Name       string  `yaml:"name"`
	DistanceKm float64 `yaml:"distance_km"`
	Stops      []struct {
		Stop string `yaml:"stop"`
		At   string `yaml:"at"`
	} `yaml:"stops"`
}

type busFixture struct {
	Number          string `yaml:"number"`
	Route           string `yaml:"route"`
	Status          string `yaml:"status"`
	Capacity        int    `yaml:"capacity"`
	DriverName      string `yaml:"driver_name"`
	DriverPhone     string `yaml:"driver_phone"`
	CurrentLocation string `yaml:"current_location"`
}

type userFixture struct {
	Name     string `yaml:"name"`
	Age      int    `yaml:"age"`
	MobileNo string `yaml:"mobile_no"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Region   string `yaml:"region"`
}

type sessionFixture struct {
	BusNumber  string `yaml:"bus_number"`
	DriverName string `yaml:"driver_name"`
	Fixes      []struct {
		Lat     float64       `yaml:"lat"`
		Lon     float64       `yaml:"lon"`
		Speed   float64       `yaml:"speed"`
		Bearing float64       `yaml:"bearing"`
		Ago     time.Duration `yaml:"ago"`
	} `yaml:"fixes"`
}

type notificationFixture struct {
	MobileNo string `yaml:"mobile_no"`
	Type     string `yaml:"type"`
	Message  string `yaml:"message"`
}

// loadFixture parses a fixture and checks that every name it references
// is declared.
func loadFixture(data []byte) (*fixture, error) {
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	stops := make(map[string]bool, len(f.Stops))
	for _, s := range f.Stops {
		stops[s.Name] = true
	}
	routes := make(map[string]bool, len(f.Routes))
	for _, r := range f.Routes {
		if len(r.Stops) < 2 {
			return nil, fmt.Errorf("route %q: needs at least two stops", r.Name)
		}
		for _, rs := range r.Stops {
			if !stops[rs.Stop] {
				return nil, fmt.Errorf("route %q: unknown stop %q", r.Name, rs.Stop)
			}
		}
		routes[r.Name] = true
	}
	buses := make(map[string]bool, len(f.Buses))
	for _, b := range f.Buses {
		if b.Route != "" && !routes[b.Route] {
			return nil, fmt.Errorf("bus %q: unknown route %q", b.Number, b.Route)
		}
		buses[b.Number] = true
	}
	for _, s := range f.Sessions {
		if !buses[s.BusNumber] {
			return nil, fmt.Errorf("session: unknown bus %q", s.BusNumber)
		}
	}
	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		users[u.MobileNo] = true
	}
	for _, n := range f.Notifications {
		if !users[n.MobileNo] {
			return nil, fmt.Errorf("notification: unknown user %q", n.MobileNo)
		}
	}
	return &f, nil
}
