package worker

import (
	"context"
	"time"

	"inventory-service/internal/service"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// SweeperLock serializes sweep passes across service instances
type SweeperLock interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

const sweeperLockKey = "reservation-sweeper"

// ExpirationSweeper periodically releases reservations whose TTL has
// lapsed. Sweeps are idempotent, so the lock only avoids wasted work;
// correctness comes from the per-reservation status flip.
type ExpirationSweeper struct {
	reservations *service.ReservationService
	lock         SweeperLock
	interval     time.Duration
	batchSize    int
	lockTTL      time.Duration
	logger       *zap.Logger
}

// NewExpirationSweeper creates a new expiration sweeper
func NewExpirationSweeper(reservations *service.ReservationService, lock SweeperLock, interval time.Duration, batchSize int, lockTTL time.Duration) *ExpirationSweeper {
	return &ExpirationSweeper{
		reservations: reservations,
		lock:         lock,
		interval:     interval,
		batchSize:    batchSize,
		lockTTL:      lockTTL,
		logger:       util.GetLogger(),
	}
}

// Start runs the sweep loop until the context is cancelled
func (w *ExpirationSweeper) Start(ctx context.Context) {
	w.logger.Info("Starting expiration sweeper",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Expiration sweeper shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirationSweeper) sweep(ctx context.Context) {
	if w.lock != nil {
		acquired, err := w.lock.AcquireLock(ctx, sweeperLockKey, w.lockTTL)
		if err != nil {
			w.logger.Warn("Failed to acquire sweeper lock", zap.Error(err))
			return
		}
		if !acquired {
			return
		}
		defer func() {
			if err := w.lock.ReleaseLock(ctx, sweeperLockKey); err != nil {
				w.logger.Warn("Failed to release sweeper lock", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	count, err := w.reservations.CleanupExpired(ctx, w.batchSize)
	util.SweeperRunsTotal.Inc()
	util.SweeperDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		w.logger.Error("Sweep pass failed", zap.Error(err))
		return
	}
	if count > 0 {
		w.logger.Info("Released expired reservations", zap.Int("count", count))
	}
}
