package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval bounds how long an expired hold can sit unreleased
// when nobody polls its status.
const DefaultSweepInterval = 60 * time.Second

// Reaper periodically sweeps expired holds. It is the active counterpart to
// the lazy expiry check on status reads; both funnel into the same
// compare-and-set, so they never double-release.
type Reaper struct {
	svc      *HoldService
	interval time.Duration
	logger   zerolog.Logger
}

func NewReaper(svc *HoldService, interval time.Duration, logger zerolog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Reaper{svc: svc, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// The immediate sweep catches holds that expired while the process was down.
func (r *Reaper) Run(ctx context.Context) error {
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	released, err := r.svc.SweepExpired(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if released > 0 {
		r.logger.Info().Int("released", released).Msg("released expired holds")
	}
}
