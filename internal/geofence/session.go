package geofence

import (
	"context"
	"fmt"
	"sync"

	"github.com/notexe/forget-me-not/internal/reminder"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Session.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	default:
		return "inactive"
	}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithStopWhenIdle lets StopIfIdle tear the subscription down once
// activeCount reports no active reminder. A nil activeCount disables idle
// stopping.
func WithStopWhenIdle(activeCount func() int) SessionOption {
	return func(s *Session) { s.activeCount = activeCount }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l.Named("session")
		}
	}
}

// Session subscribes to background location updates at most once.
type Session struct {
	mu            sync.Mutex
	state         State
	sub           Subscription
	level         PermissionLevel
	notifications bool

	provider     LocationProvider
	permissions  PermissionService
	config       UpdateConfig
	callback     func(Fix)
	activeCount  func() int
	logger       *zap.Logger
}

// NewSession returns an inactive session that, once started, feeds every
// fix from provider to callback.
func NewSession(provider LocationProvider, permissions PermissionService, cfg UpdateConfig, callback func(Fix), opts ...SessionOption) *Session {
	s := &Session{
		state:       Inactive,
		level:       PermissionUnknown,
		provider:    provider,
		permissions: permissions,
		config:      cfg,
		callback:    callback,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestPermissions asks for notification, foreground and then background
// location permission. Background is only requested once foreground is
// granted. Failures count as denials and are logged.
func (s *Session) RequestPermissions(ctx context.Context) PermissionLevel {
	notifications, err := s.permissions.RequestNotifications(ctx)
	if err != nil {
		s.logger.Warn("notification permission request failed", zap.Error(err))
		notifications = false
	}

	level := PermissionDenied
	foreground, err := s.permissions.RequestForegroundLocation(ctx)
	if err != nil {
		s.logger.Warn("foreground location permission request failed", zap.Error(err))
		foreground = false
	}
	if foreground {
		level = PermissionForeground
		background, err := s.permissions.RequestBackgroundLocation(ctx)
		if err != nil {
			s.logger.Warn("background location permission request failed", zap.Error(err))
			background = false
		}
		if background {
			level = PermissionFull
		}
	}

	s.mu.Lock()
	s.level = level
	s.notifications = notifications
	s.mu.Unlock()

	s.logger.Info("permissions resolved",
		zap.String("location", string(level)),
		zap.Bool("notifications", notifications))
	return level
}

// PermissionLevel returns the last resolved location permission.
func (s *Session) PermissionLevel() PermissionLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Ready reports whether full location and notification permission have
// been granted.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level == PermissionFull && s.notifications
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnsureStarted starts location updates unless they are already running.
// Without permission it stays Inactive and returns ErrPermissionDenied.
func (s *Session) EnsureStarted(ctx context.Context, permissionGranted bool) error {
	if !permissionGranted {
		s.logger.Info("background location permission not granted; geofencing stays inactive")
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Active {
		return nil
	}

	sub, err := s.provider.StartUpdates(ctx, s.config, s.callback)
	if err != nil {
		s.logger.Error("failed to start location updates", zap.Error(err))
		return fmt.Errorf("failed to start location updates: %w", err)
	}

	s.sub = sub
	s.state = Active
	s.logger.Info("location updates started",
		zap.String("accuracy", s.config.Accuracy),
		zap.Duration("min_interval", s.config.MinInterval),
		zap.Float64("min_distance_m", s.config.MinDistance))
	return nil
}

// HandleActivated is registered as a repository hook for reminders that
// become active, either newly created or reopened.
func (s *Session) HandleActivated(r reminder.Reminder) {
	if err := s.EnsureStarted(context.Background(), s.Ready()); err != nil {
		s.logger.Debug("reminder activated without active geofencing",
			zap.String("id", r.ID), zap.Error(err))
	}
}

// StopIfIdle stops location updates when idle stopping is enabled and no
// active reminder remains. The active count is read under the session lock,
// so a reminder activated concurrently either keeps the session running or
// restarts it afterwards. It reports whether the session was stopped.
func (s *Session) StopIfIdle() bool {
	if s.activeCount == nil {
		return false
	}

	s.mu.Lock()
	if s.activeCount() > 0 {
		s.mu.Unlock()
		return false
	}
	stopped, err := s.stopLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to stop idle location updates", zap.Error(err))
	}
	if stopped {
		s.logger.Info("location updates stopped; no active reminders")
	}
	return stopped
}

// Stop ends the subscription. It is used on shutdown.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.stopLocked()
	return err
}

// stopLocked ends the subscription. s.mu must be held.
func (s *Session) stopLocked() (bool, error) {
	if s.state == Inactive {
		return false, nil
	}
	sub := s.sub
	s.sub = nil
	s.state = Inactive
	if sub == nil {
		return true, nil
	}
	if err := sub.Stop(); err != nil {
		return true, fmt.Errorf("failed to stop location updates: %w", err)
	}
	return true, nil
}
