package emergent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	e, _ := newTestEngine(t)
	opts = append([]SchedulerOption{WithInterval(time.Hour)}, opts...)
	s, err := NewScheduler(e, zap.NewNop(), opts...)
	require.NoError(t, err)
	return s
}

func TestSchedulerRequiresEngine(t *testing.T) {
	t.Parallel()
	_, err := NewScheduler(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	assert.False(t, s.Running())

	require.NoError(t, s.Start())
	assert.True(t, s.Running())

	// A second Start must not spawn a second loop.
	assert.Error(t, s.Start())

	require.NoError(t, s.Stop())
	assert.False(t, s.Running())

	// Stopping a stopped scheduler is a no-op.
	assert.NoError(t, s.Stop())
}

func TestSchedulerRestarts(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	require.NoError(t, s.Stop())
}

func TestSchedulerRotatesStrategies(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	// Tick through more than one full rotation; an empty store makes
	// every strategy a quiet no-op.
	for i := 0; i < len(Strategies())+1; i++ {
		s.safeTick()
	}
	s.mu.Lock()
	next := s.next
	s.mu.Unlock()
	assert.Equal(t, len(Strategies())+1, next)
}

func TestSchedulerCustomStrategies(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, WithStrategies([]Strategy{StrategyDream}))
	s.safeTick()
	s.safeTick()
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, 2, s.next)
}
