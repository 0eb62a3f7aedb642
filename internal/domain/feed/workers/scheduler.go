package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	feederrors "github.com/Conte777/tgnewsfeed/internal/domain/feed/errors"
	"github.com/rs/zerolog"
)

// Scheduler triggers a channel update cycle at a fixed interval from process start.
// Missed ticks are not caught up and nothing is persisted between restarts.
type Scheduler struct {
	updater  deps.ChannelUpdater
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	done   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new update scheduler
func NewScheduler(
	updater deps.ChannelUpdater,
	parserCfg *config.ParserConfig,
	logger zerolog.Logger,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		updater:  updater,
		interval: parserCfg.Interval,
		timeout:  parserCfg.CycleTimeout,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler loop
func (s *Scheduler) Start() {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("timeout", s.timeout).
		Msg("Starting channel update scheduler")

	s.wg.Add(1)
	go s.run()
}

// Stop cancels an in-flight cycle and waits for the loop to exit
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping channel update scheduler")

	s.cancel()
	close(s.done)
	s.wg.Wait()

	s.logger.Info().Msg("Channel update scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.ctx.Err() != nil {
				return
			}
			s.runCycle()
		}
	}
}

// runCycle performs a single update cycle, surviving panics so the next tick still fires
func (s *Scheduler) runCycle() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Channel update cycle panicked")
		}
	}()

	total, err := s.updater.UpdateChannels(ctx)
	switch {
	case err == nil:
		s.logger.Debug().Int("new_posts", total).Msg("Scheduled update cycle completed")
	case errors.Is(err, feederrors.ErrEngineBusy):
		s.logger.Info().Msg("Previous update cycle still running, tick skipped")
	case ctx.Err() != nil:
		s.logger.Warn().Err(err).Msg("Update cycle cancelled or timed out")
	default:
		s.logger.Error().Err(err).Msg("Update cycle failed")
	}
}
