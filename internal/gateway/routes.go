package gateway

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/pkg/breaker"
	"gopkg.in/yaml.v3"
)

type Route struct {
	Name      string   `yaml:"name"`
	Prefix    string   `yaml:"prefix"`
	Upstreams []string `yaml:"upstreams"`
}

type BreakerSettings struct {
	FailureThreshold int64         `yaml:"failureThreshold"`
	Window           time.Duration `yaml:"window"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

func (s BreakerSettings) settings() breaker.Settings {
	return breaker.Settings{FailureThreshold: s.FailureThreshold, Window: s.Window, Cooldown: s.Cooldown}
}

type Table struct {
	Routes  []Route         `yaml:"routes"`
	Breaker BreakerSettings `yaml:"breaker"`
}

type Upstreams struct {
	Users, Rooms, Bookings, Events, Approvals []string
}

// DefaultTable maps every public API prefix to the service that owns it.
func DefaultTable(u Upstreams, b BreakerSettings) Table {
	return Table{
		Routes: []Route{
			{Name: "user-service", Prefix: "/api/users", Upstreams: u.Users},
			{Name: "room-service", Prefix: "/api/rooms", Upstreams: u.Rooms},
			{Name: "booking-service", Prefix: "/api/bookings", Upstreams: u.Bookings},
			{Name: "event-service", Prefix: "/api/events", Upstreams: u.Events},
			{Name: "approval-service", Prefix: "/api/approvals", Upstreams: u.Approvals},
		},
		Breaker: b,
	}
}

// LoadTable reads a route table from a YAML file. Breaker settings missing from the file are taken
// from def.
func LoadTable(path string, def BreakerSettings) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read routes: %w", err)
	}
	t := Table{Breaker: def}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Table{}, fmt.Errorf("parse routes %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("routes %s: %w", path, err)
	}
	return t, nil
}

func (t Table) Validate() error {
	if len(t.Routes) == 0 {
		return fmt.Errorf("no routes")
	}
	seen := map[string]bool{}
	for _, r := range t.Routes {
		if r.Name == "" || !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("route %q: name and an absolute prefix are required", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("route %q defined twice", r.Name)
		}
		seen[r.Name] = true
		if len(r.Upstreams) == 0 {
			return fmt.Errorf("route %q: no upstreams", r.Name)
		}
		for _, u := range r.Upstreams {
			if parsed, err := url.Parse(u); err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return fmt.Errorf("route %q: bad upstream %q", r.Name, u)
			}
		}
	}
	return nil
}

// sortByPrefix orders routes longest prefix first so the first match is the most specific one.
func sortByPrefix(routes []*route) {
	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].prefix) > len(routes[j].prefix)
	})
}

// matches reports whether path falls under prefix on a segment boundary.
func matches(prefix, path string) bool {
	p := strings.TrimRight(prefix, "/")
	if p == "" {
		return true
	}
	if !strings.HasPrefix(path, p) {
		return false
	}
	return len(path) == len(p) || path[len(p)] == '/'
}
