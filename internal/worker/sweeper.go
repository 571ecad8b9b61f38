package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSweepInterval     = 5 * time.Minute
	DefaultInactiveThreshold = 5 * time.Minute
)

// PresenceStore is the slice of the user store the sweeper needs.
type PresenceStore interface {
	MarkInactiveOffline(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically demotes users whose lastSeen is older than the
// inactivity threshold. It catches clients that vanished without a clean
// disconnect, such as a killed process or a dropped network.
type Sweeper struct {
	userRepo  PresenceStore
	interval  time.Duration
	threshold time.Duration
	log       *zap.SugaredLogger
	stop      chan struct{}
	done      chan struct{}
}

func NewSweeper(userRepo PresenceStore, interval, threshold time.Duration, log *zap.SugaredLogger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if threshold <= 0 {
		threshold = DefaultInactiveThreshold
	}
	return &Sweeper{
		userRepo:  userRepo,
		interval:  interval,
		threshold: threshold,
		log:       log,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until Stop.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)

		s.Sweep(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// Sweep marks every user inactive past the threshold as offline and returns
// how many were demoted.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	cutoff := time.Now().Add(-s.threshold)
	demoted, err := s.userRepo.MarkInactiveOffline(ctx, cutoff)
	if err != nil {
		s.log.Errorw("inactive user sweep failed", "error", err)
		return 0
	}
	if demoted > 0 {
		s.log.Infow("inactive users marked offline", "count", demoted)
	}
	return demoted
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
