package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/notexe/forget-me-not/internal/geo"
)

// Radius limits, in meters, accepted when a reminder is created.
const (
	DefaultRadius = 200
	MinRadius     = 50
	MaxRadius     = 1000
)

// Location is the place a reminder is attached to.
type Location struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    int     `json:"radius"`
}

// Point returns the location's coordinate.
func (l Location) Point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// Reminder is a geotagged task that fires a notification when the device
// comes within Location.Radius meters of the location.
type Reminder struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	Location        Location   `json:"location"`
	Completed       bool       `json:"completed"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	TriggeredCount  int        `json:"triggeredCount"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt"`
}

// Active reports whether the reminder takes part in proximity evaluation.
func (r Reminder) Active() bool {
	return !r.Completed
}

// CooledDown reports whether at least cooldown has passed since the last
// trigger. A reminder that never fired is always cooled down.
func (r Reminder) CooledDown(now time.Time, cooldown time.Duration) bool {
	if r.LastTriggeredAt == nil {
		return true
	}
	return now.Sub(*r.LastTriggeredAt) >= cooldown
}

// Clone returns a copy that shares no memory with r.
func (r Reminder) Clone() Reminder {
	c := r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.LastTriggeredAt != nil {
		t := *r.LastTriggeredAt
		c.LastTriggeredAt = &t
	}
	return c
}

// LocationGroup aggregates the reminders attached to one location name.
type LocationGroup struct {
	Name           string     `json:"name"`
	Location       Location   `json:"location"`
	Reminders      []Reminder `json:"reminders"`
	ActiveCount    int        `json:"activeCount"`
	CompletedCount int        `json:"completedCount"`
}

// Limits bounds the radius accepted by Create.
type Limits struct {
	MinRadius     int
	MaxRadius     int
	DefaultRadius int
}

// DefaultLimits returns the radius limits of the location picker.
func DefaultLimits() Limits {
	return Limits{
		MinRadius:     MinRadius,
		MaxRadius:     MaxRadius,
		DefaultRadius: DefaultRadius,
	}
}

// normalize trims user input and fills in the default radius.
// It returns the first validation failure found.
func (l Limits) normalize(text string, loc Location) (string, Location, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", loc, &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	loc.Name = strings.TrimSpace(loc.Name)
	loc.Address = strings.TrimSpace(loc.Address)
	if loc.Name == "" {
		return "", loc, &ValidationError{Field: "location.name", Reason: "must not be empty"}
	}
	if !loc.Point().Valid() {
		return "", loc, &ValidationError{Field: "location", Reason: "coordinates out of range"}
	}

	if loc.Radius == 0 {
		loc.Radius = l.DefaultRadius
	}
	if loc.Radius < l.MinRadius || loc.Radius > l.MaxRadius {
		return "", loc, &ValidationError{
			Field:  "location.radius",
			Reason: fmt.Sprintf("must be between %d and %d meters", l.MinRadius, l.MaxRadius),
		}
	}

	return text, loc, nil
}
