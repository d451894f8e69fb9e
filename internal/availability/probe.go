// Package availability tracks whether the primary search engine is fit to
// serve traffic. The answer is cached process-wide so that every search does
// not pay for a health check, and failures push rechecks out on a backoff.
package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pinger is the slice of the engine client the probe needs: a connectivity
// ping and a cluster health read.
type Pinger interface {
	Ping(ctx context.Context) error
	ClusterHealth(ctx context.Context) (string, error)
}

const (
	// cacheTTL is how long a probe verdict is trusted.
	cacheTTL = 60 * time.Second

	// failureSkew is subtracted from the recorded check time on failure,
	// shrinking the effective TTL of a negative verdict to 10s. One timer,
	// asymmetric behavior.
	failureSkew = 50 * time.Second

	// backoffThreshold is the consecutive-failure count at which the skew
	// is dropped, so a persistently dead engine is only rechecked on the
	// full TTL.
	backoffThreshold = 5

	// healthTimeout bounds the cluster health read so a hung engine cannot
	// stall a search request.
	healthTimeout = 2 * time.Second
)

// State is the cached probe verdict.
type State struct {
	Available           bool
	LastCheckedAt       time.Time
	ConsecutiveFailures int
}

// Probe health-checks the primary engine with adaptive caching. It is safe
// for concurrent use; the cached state is the only shared mutable data and
// is guarded by the mutex. No lock is held across a network call.
type Probe struct {
	pinger Pinger
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	state   *State
	probing bool
}

// NewProbe creates a probe around the given engine client. The state starts
// unknown, which is treated as "recheck now".
func NewProbe(pinger Pinger, logger *slog.Logger) *Probe {
	return &Probe{
		pinger: pinger,
		logger: logger,
		now:    time.Now,
	}
}

// IsAvailable reports whether the primary engine should be used. A cached
// verdict younger than its TTL is returned unchanged; otherwise one probe is
// performed. Probe failures never propagate, they only flip the verdict.
func (p *Probe) IsAvailable(ctx context.Context) bool {
	p.mu.Lock()
	if p.state != nil && p.now().Sub(p.state.LastCheckedAt) < cacheTTL {
		available := p.state.Available
		p.mu.Unlock()
		return available
	}
	if p.probing {
		// Another goroutine is already rechecking; serve the stale verdict
		// (or pessimistic false when none exists yet) rather than piling on.
		available := p.state != nil && p.state.Available
		p.mu.Unlock()
		return available
	}
	p.probing = true
	failures := 0
	if p.state != nil {
		failures = p.state.ConsecutiveFailures
	}
	p.mu.Unlock()

	available := p.check(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.probing = false

	checkedAt := p.now()
	if available {
		failures = 0
	} else {
		failures++
		if failures < backoffThreshold {
			// Shrink the effective TTL so a transient failure is rechecked
			// soon; past the threshold the full TTL applies.
			checkedAt = checkedAt.Add(-failureSkew)
		}
	}
	p.state = &State{
		Available:           available,
		LastCheckedAt:       checkedAt,
		ConsecutiveFailures: failures,
	}
	return available
}

// check performs one ping plus bounded cluster health read. Red status counts
// as unavailable even though the engine is reachable.
func (p *Probe) check(ctx context.Context) bool {
	if err := p.pinger.Ping(ctx); err != nil {
		p.logger.Warn("engine ping failed", slog.String("error", err.Error()))
		return false
	}

	healthCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	status, err := p.pinger.ClusterHealth(healthCtx)
	if err != nil {
		p.logger.Warn("engine health check failed", slog.String("error", err.Error()))
		return false
	}

	switch status {
	case "green", "yellow":
		return true
	default:
		p.logger.Warn("engine cluster unhealthy", slog.String("status", status))
		return false
	}
}

// Snapshot returns a copy of the current state, or nil before the first probe.
func (p *Probe) Snapshot() *State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil
	}
	s := *p.state
	return &s
}
