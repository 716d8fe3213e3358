// Package sweeper runs the periodic expiry jobs: lapsed seat holds and lapsed
// waitlist notification windows.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

type HoldExpirer interface {
	ExpireHolds(ctx context.Context) ([]domain.Registration, error)
}

type WindowExpirer interface {
	ExpireNotified(ctx context.Context) ([]domain.WaitlistEntry, error)
}

type Sweeper struct {
	holds         HoldExpirer
	windows       WindowExpirer
	holdEvery     time.Duration
	waitlistEvery time.Duration
}

func New(holds HoldExpirer, windows WindowExpirer, holdEvery, waitlistEvery time.Duration) *Sweeper {
	return &Sweeper{holds: holds, windows: windows, holdEvery: holdEvery, waitlistEvery: waitlistEvery}
}

func (s *Sweeper) SweepHolds(ctx context.Context) (int, error) {
	expired, err := s.holds.ExpireHolds(ctx)
	if len(expired) > 0 {
		log.Printf("expired %d seat holds", len(expired))
	}
	return len(expired), err
}

func (s *Sweeper) SweepWaitlist(ctx context.Context) (int, error) {
	expired, err := s.windows.ExpireNotified(ctx)
	if len(expired) > 0 {
		log.Printf("expired %d waitlist offers", len(expired))
	}
	return len(expired), err
}

// Run sweeps on both tickers until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	holdTicker := time.NewTicker(s.holdEvery)
	defer holdTicker.Stop()
	waitlistTicker := time.NewTicker(s.waitlistEvery)
	defer waitlistTicker.Stop()

	for {
		select {
		case <-holdTicker.C:
			if _, err := s.SweepHolds(ctx); err != nil {
				log.Printf("expire holds error: %v", err)
			}
		case <-waitlistTicker.C:
			if _, err := s.SweepWaitlist(ctx); err != nil {
				log.Printf("expire waitlist offers error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
