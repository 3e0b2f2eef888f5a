package approval

import (
	"context"
	"time"

	"github.com/bremersee/authman/internal/observability/logger"
	"github.com/bremersee/authman/internal/security/runas"
)

// DefaultPurgeInterval runs the purge once a day.
const DefaultPurgeInterval = 24 * time.Hour

// Purger calls PurgeExpiredApprovals on a fixed interval in its own goroutine.
type Purger struct {
	store    *Store
	interval time.Duration
	done     chan struct{}
}

func NewPurger(store *Store, interval time.Duration) *Purger {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	return &Purger{store: store, interval: interval, done: make(chan struct{})}
}

// Start launches the loop. It stops when ctx is cancelled; Done is closed
// afterwards.
func (p *Purger) Start(ctx context.Context) {
	go p.run(ctx)
}

// Done is closed once the loop has exited.
func (p *Purger) Done() <-chan struct{} { return p.done }

func (p *Purger) run(ctx context.Context) {
	defer close(p.done)

	log := logger.From(ctx).With(logger.Component("approval.purger"))
	log.Info("approval purger started", logger.Duration(p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("approval purger stopped")
			return
		case <-ticker.C:
			_, _ = p.RunOnce(ctx)
		}
	}
}

// RunOnce performs one purge as the system principal and logs the outcome.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	var n int64
	err := runas.RunAsContext(ctx, runas.System, func(ctx context.Context) error {
		principal, _ := runas.FromContext(ctx)
		log := logger.From(ctx).With(
			logger.Component("approval.purger"),
			logger.UserID(principal.Name),
		)

		start := time.Now()
		var err error
		n, err = p.store.PurgeExpiredApprovals(ctx)
		if err != nil {
			log.Error("approval purge failed", logger.Err(err), logger.Duration(time.Since(start)))
			return err
		}
		log.Info("expired approvals purged", logger.Count(int(n)), logger.Duration(time.Since(start)))
		return nil
	})
	return n, err
}
