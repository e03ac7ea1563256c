package replay

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GracePeriod suppresses interference checks for a short window after it is
// restarted. It lives across replays and is restarted whenever the pattern
// is loaded, freshly recorded or a replay is interrupted.
type GracePeriod struct {
	mu       sync.Mutex
	duration time.Duration
	started  time.Time
	active   bool
	logger   zerolog.Logger
}

// NewGracePeriod returns an inactive grace period of the given length.
func NewGracePeriod(d time.Duration, logger zerolog.Logger) *GracePeriod {
	return &GracePeriod{duration: d, logger: logger}
}

// Restart begins a new window at now.
func (g *GracePeriod) Restart(now time.Time) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.started = now
	g.active = g.duration > 0
	g.mu.Unlock()
}

// SetDuration changes the window length used by later restarts and checks.
func (g *GracePeriod) SetDuration(d time.Duration) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.duration = d
	g.mu.Unlock()
}

// Duration returns the configured window length.
func (g *GracePeriod) Duration() time.Duration {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.duration
}

// Active reports whether now still falls inside the window. The first check
// past the window ends it.
func (g *GracePeriod) Active(now time.Time) bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return false
	}
	if now.Sub(g.started) > g.duration {
		g.active = false
		g.logger.Debug().Dur("duration", g.duration).Msg("grace period ended")
		return false
	}
	return true
}
