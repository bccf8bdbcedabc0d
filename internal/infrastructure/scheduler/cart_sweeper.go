package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the cleanup primitive the sweep loop drives. The cart service
// implements it by deleting guest carts past their expiry.
type Sweeper interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CartSweeperConfig holds sweep loop configuration
type CartSweeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

// DefaultCartSweeperConfig returns the default sweep configuration
func DefaultCartSweeperConfig() CartSweeperConfig {
	return CartSweeperConfig{
		Enabled:  true,
		Interval: time.Hour,
	}
}

// CartSweeper periodically deletes expired guest carts. Expired carts are
// already invisible to lookups; the sweep only reclaims the rows, so a
// missed run is harmless.
type CartSweeper struct {
	config  CartSweeperConfig
	sweeper Sweeper
	logger  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewCartSweeper creates a new CartSweeper
func NewCartSweeper(config CartSweeperConfig, sweeper Sweeper, logger *zap.Logger) *CartSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultCartSweeperConfig().Interval
	}
	return &CartSweeper{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start launches the background sweep loop. It is a no-op when the sweeper
// is disabled or already running.
func (s *CartSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info("guest cart sweep disabled")
		return nil
	}
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(runCtx)

	s.logger.Info("guest cart sweep started",
		zap.Duration("interval", s.config.Interval),
	)
	return nil
}

// Stop terminates the sweep loop and waits for an in-flight sweep to finish
func (s *CartSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	select {
	case <-done:
		s.logger.Info("guest cart sweep stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CartSweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// One sweep at startup so a long interval doesn't delay the first pass
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *CartSweeper) sweep(ctx context.Context) {
	start := time.Now()
	removed, err := s.sweeper.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("guest cart sweep failed", zap.Error(err))
		return
	}

	if removed > 0 {
		s.logger.Info("guest cart sweep completed",
			zap.Int64("removed", removed),
			zap.Duration("took", time.Since(start)),
		)
	} else {
		s.logger.Debug("guest cart sweep found nothing to remove",
			zap.Duration("took", time.Since(start)),
		)
	}
}
