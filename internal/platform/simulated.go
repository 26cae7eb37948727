package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/notexe/forget-me-not/internal/geo"
	"github.com/notexe/forget-me-not/internal/geofence"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by StartUpdates while a subscription exists.
var ErrAlreadyRunning = errors.New("location updates already running")

// SimulatedProvider is a LocationProvider fed by Push. It applies the
// requested cadence the way a platform provider would: a fix is delivered
// when MinInterval has passed since the last delivery or the position moved
// at least MinDistance meters.
type SimulatedProvider struct {
	mu       sync.Mutex
	running  bool
	gen      int
	cfg      geofence.UpdateConfig
	callback func(geofence.Fix)
	last     *geofence.Fix
	now      func() time.Time
	logger   *zap.Logger
}

// NewSimulatedProvider creates a provider with no subscriber.
func NewSimulatedProvider(logger *zap.Logger) *SimulatedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedProvider{
		now:    time.Now,
		logger: logger.Named("location"),
	}
}

// SetClock replaces the clock used to stamp and gate fixes.
func (p *SimulatedProvider) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

// StartUpdates subscribes callback to pushed fixes, gated by the cadence in cfg.
// Only one subscription may run at a time.
func (p *SimulatedProvider) StartUpdates(_ context.Context, cfg geofence.UpdateConfig, callback func(geofence.Fix)) (geofence.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil, ErrAlreadyRunning
	}
	p.running = true
	p.gen++
	p.cfg = cfg
	p.callback = callback
	p.last = nil

	p.logger.Debug("subscription started", zap.Int("generation", p.gen))
	return &subscription{provider: p, gen: p.gen}, nil
}

// Push offers a position to the running subscription. It reports whether
// the fix was delivered; fixes are dropped while stopped or when they fall
// inside the cadence window.
func (p *SimulatedProvider) Push(lat, lon float64) bool {
	p.mu.Lock()

	if !p.running {
		p.mu.Unlock()
		p.logger.Debug("location updates stopped; fix dropped")
		return false
	}

	fix := geofence.Fix{Latitude: lat, Longitude: lon, Timestamp: p.now()}
	if !p.dueLocked(fix) {
		p.mu.Unlock()
		p.logger.Debug("fix inside cadence window; dropped",
			zap.Float64("latitude", lat), zap.Float64("longitude", lon))
		return false
	}
	p.last = &fix
	callback := p.callback
	p.mu.Unlock()

	callback(fix)
	return true
}

// Running reports whether a subscription is active.
func (p *SimulatedProvider) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Last returns the most recently delivered fix.
func (p *SimulatedProvider) Last() (geofence.Fix, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return geofence.Fix{}, false
	}
	return *p.last, true
}

func (p *SimulatedProvider) dueLocked(fix geofence.Fix) bool {
	if p.last == nil {
		return true
	}
	if fix.Timestamp.Sub(p.last.Timestamp) >= p.cfg.MinInterval {
		return true
	}
	return geo.Distance(p.last.Latitude, p.last.Longitude, fix.Latitude, fix.Longitude) >= p.cfg.MinDistance
}

func (p *SimulatedProvider) stop(gen int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.gen != gen {
		return
	}
	p.running = false
	p.callback = nil
	p.logger.Debug("subscription stopped", zap.Int("generation", gen))
}

type subscription struct {
	provider *SimulatedProvider
	gen      int
}

func (s *subscription) Stop() error {
	s.provider.stop(s.gen)
	return nil
}
