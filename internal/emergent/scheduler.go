package emergent

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the reference scheduler interval.
const DefaultInterval = 5 * time.Minute

// Scheduler runs discovery strategies in the background on a fixed
// interval, rotating through the strategy list one tick at a time. It is
// independently start/stop-able and has no effect on query correctness.
//
// All public methods are thread-safe; running state is guarded by a
// mutex so concurrent Start/Stop calls cannot race.
type Scheduler struct {
	interval   time.Duration
	engine     *Engine
	strategies []Strategy
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	next    int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the tick interval. Defaults to DefaultInterval.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStrategies sets the rotation. Defaults to all four strategies.
func WithStrategies(strategies []Strategy) SchedulerOption {
	return func(s *Scheduler) {
		if len(strategies) > 0 {
			s.strategies = strategies
		}
	}
}

// NewScheduler creates a scheduler over the given engine. It does not
// start automatically; call Start.
func NewScheduler(engine *Engine, logger *zap.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		interval:   DefaultInterval,
		engine:     engine,
		strategies: Strategies(),
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins the background loop. Starting an already running
// scheduler returns an error without spawning a second goroutine.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.stopCh = make(chan struct{})
	s.running = true

	s.logger.Info("discovery scheduler started", zap.Duration("interval", s.interval))
	go s.run()
	return nil
}

// Stop signals the loop to exit. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Debug("scheduler stop called but not running")
		return nil
	}
	s.logger.Info("stopping discovery scheduler")
	s.running = false
	close(s.stopCh)
	return nil
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the loop body. A panicking strategy run is recovered and logged;
// the scheduler keeps ticking.
func (s *Scheduler) run() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler goroutine panicked, recovering",
				zap.Any("panic", r),
				zap.Stack("stack"))
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.safeTick()
		case <-s.stopCh:
			s.logger.Debug("scheduler received stop signal")
			return
		}
	}
}

func (s *Scheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("discovery run panicked, continuing scheduler",
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	s.mu.Lock()
	strategy := s.strategies[s.next%len(s.strategies)]
	s.next++
	s.mu.Unlock()

	insights, err := s.engine.Trigger(strategy)
	if err != nil {
		s.logger.Error("scheduled discovery failed",
			zap.String("strategy", string(strategy)),
			zap.Error(err))
		return
	}
	s.logger.Debug("scheduled discovery completed",
		zap.String("strategy", string(strategy)),
		zap.Int("insights", len(insights)))
}
