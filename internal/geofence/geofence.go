// Package geofence watches the device position against the radius of every
// active reminder and fires notifications on entry.
//
// A Session owns the platform location subscription, a Worker receives the
// subscription's fixes and runs one Evaluator pass per fix.
package geofence

import (
	"context"
	"errors"
	"time"

	"github.com/notexe/forget-me-not/internal/geo"
)

var (
	// ErrPermissionDenied is returned when location or notification
	// permission has not been granted.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrInactive is returned when an operation needs running location updates.
	ErrInactive = errors.New("geofencing session inactive")
)

// Fix is one position reported by the location provider.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the fix's coordinate.
func (f Fix) Point() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// UpdateConfig is the cadence requested from the location provider. A fix
// is delivered when MinInterval has elapsed or the device moved MinDistance
// meters, whichever comes first.
type UpdateConfig struct {
	Accuracy    string
	MinInterval time.Duration
	MinDistance float64
}

// LocationProvider delivers periodic position updates to a callback.
type LocationProvider interface {
	StartUpdates(ctx context.Context, cfg UpdateConfig, callback func(Fix)) (Subscription, error)
}

// Subscription is a running location update stream.
type Subscription interface {
	Stop() error
}

// PermissionService asks the platform for the grants geofencing needs.
type PermissionService interface {
	RequestForegroundLocation(ctx context.Context) (bool, error)
	RequestBackgroundLocation(ctx context.Context) (bool, error)
	RequestNotifications(ctx context.Context) (bool, error)
}

// PermissionLevel summarizes the location grant.
type PermissionLevel string

const (
	PermissionUnknown    PermissionLevel = "unknown"
	PermissionDenied     PermissionLevel = "denied"
	PermissionForeground PermissionLevel = "foreground"
	PermissionFull       PermissionLevel = "full"
)
