package match

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically completes delivered matches whose sender never
// confirmed receipt within the release window.
type Sweeper struct {
	svc      *Service
	after    time.Duration
	interval time.Duration
}

func NewSweeper(svc *Service, after, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{svc: svc, after: after, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	log.Printf("[sweeper] auto-release after %s, checking every %s", s.after, s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many matches it completed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.svc.now().UTC().Add(-s.after)
	n, err := s.svc.AutoComplete(ctx, cutoff)
	if err != nil {
		log.Printf("[sweeper][ERROR] %v", err)
	}
	if n > 0 {
		log.Printf("[sweeper] auto-completed %d matches", n)
	}
	return n
}
