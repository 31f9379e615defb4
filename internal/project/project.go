package project

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
)

// Feature names a project may be granted.
const (
	FeatureRead   = "read"
	FeatureWrite  = "write"
	FeatureDelete = "delete"
)

// defaultWindow applies when a window string cannot be parsed.
const defaultWindow = time.Hour

var windowPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// Project is a registered API consumer. Projects are built once at start-up
// and never mutated, so they are shared freely between goroutines.
type Project struct {
	Key            string
	Name           string
	Domain         string
	AllowedOrigins []string
	Policy         ratelimit.Policy
	Features       []string

	// Elevated projects are placed in the admin room when their socket
	// connections authenticate.
	Elevated bool

	// WindowLabel is the window as written in config (e.g. "1h"), kept for
	// responses that echo the policy back.
	WindowLabel string
}

// HasFeature reports whether the project was granted the named feature.
func (p *Project) HasFeature(name string) bool {
	for _, f := range p.Features {
		if f == name {
			return true
		}
	}
	return false
}

// ParseWindow converts "<n><unit>" (unit s, m, h or d) to a duration.
// Anything else, including zero or a count too large for a Duration,
// yields one hour.
func ParseWindow(s string) time.Duration {
	if d, ok := parseWindow(s); ok {
		return d
	}
	return defaultWindow
}

func parseWindow(s string) (time.Duration, bool) {
	m := windowPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}

	unit := map[string]time.Duration{
		"s": time.Second,
		"m": time.Minute,
		"h": time.Hour,
		"d": 24 * time.Hour,
	}[m[2]]
	if n > math.MaxInt64/int64(unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

func fromConfig(c config.ProjectConfig) (*Project, error) {
	for _, f := range c.Features {
		switch f {
		case FeatureRead, FeatureWrite, FeatureDelete:
		default:
			return nil, fmt.Errorf("project %q: %w: %q", c.Name, ErrUnknownFeature, f)
		}
	}

	label := c.RateLimit.Window
	if _, ok := parseWindow(label); !ok {
		label = "1h"
	}

	return &Project{
		Key:            c.Key,
		Name:           c.Name,
		Domain:         c.Domain,
		AllowedOrigins: append([]string(nil), c.AllowedOrigins...),
		Policy: ratelimit.Policy{
			Quota:  c.RateLimit.Requests,
			Window: ParseWindow(c.RateLimit.Window),
		},
		Features:    append([]string(nil), c.Features...),
		Elevated:    c.Elevated,
		WindowLabel: label,
	}, nil
}
