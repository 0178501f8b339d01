package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingPruner struct {
	calls atomic.Int32
}

func (p *countingPruner) PruneIndex() int {
	p.calls.Add(1)
	return 1
}

func TestScheduler_PrunesPeriodically(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(pruner, 10*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return pruner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	stopped := pruner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, pruner.calls.Load())

	// повторная остановка безопасна
	s.Stop()
}

func TestScheduler_Disabled(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(pruner, 0, zap.NewNop())

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	assert.Zero(t, pruner.calls.Load())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(pruner, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prune task did not stop after context cancel")
	}
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger("production", "debug"))
	assert.NotNil(t, NewLogger("development", "not-a-level"))
}
