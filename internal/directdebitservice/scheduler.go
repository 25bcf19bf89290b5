package directdebitservice

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSchedulerInterval is used when no positive interval is configured.
const DefaultSchedulerInterval = time.Minute

// Run executes the due orders right away and then on every tick of interval until
// ctx is done. A failing run is logged and retried on the next tick.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	l := zerolog.Ctx(ctx)

	if interval <= 0 {
		interval = DefaultSchedulerInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.ExecuteDue(ctx, time.Now().UTC()); err != nil {
			l.Error().Err(err).Msg("direct debits run failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
