// internal/lobby/reaper.go
package lobby

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultReapInterval = 5 * time.Minute
	DefaultIdleTimeout  = 10 * time.Minute
)

// Reaper periodically removes lobbies that have been idle longer than IdleTimeout.
type Reaper struct {
	store       *LobbyStore
	Interval    time.Duration
	IdleTimeout time.Duration
	now         func() time.Time
	log         *logrus.Logger
}

// NewReaper returns a Reaper over store. Non-positive durations use the defaults.
func NewReaper(store *LobbyStore, interval, idleTimeout time.Duration, logger *logrus.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reaper{
		store:       store,
		Interval:    interval,
		IdleTimeout: idleTimeout,
		now:         time.Now,
		log:         logger,
	}
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := r.Sweep(r.now()); len(reaped) > 0 {
				r.log.WithField("count", len(reaped)).Info("reaped idle lobbies")
			}
		}
	}
}

// Sweep removes every lobby whose last activity is more than IdleTimeout before now
// and returns the removed ids. The idle check is repeated under each lobby's lock, so
// a command that lands mid-sweep keeps its lobby alive.
func (r *Reaper) Sweep(now time.Time) []uuid.UUID {
	cutoff := now.Add(-r.IdleTimeout)
	var reaped []uuid.UUID
	for _, id := range r.store.IDs() {
		if r.store.RemoveIfIdle(id, cutoff, "idle") {
			r.log.WithField("lobby_id", id).Debug("idle lobby reaped")
			reaped = append(reaped, id)
		}
	}
	return reaped
}
