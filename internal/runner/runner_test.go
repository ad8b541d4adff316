package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	name     string
	schedule string
	runs     atomic.Int32
	err      error
}

func (t *countingTask) Name() string           { return t.name }
func (t *countingTask) Schedule() string       { return t.schedule }
func (t *countingTask) Timeout() time.Duration { return time.Second }
func (t *countingTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	return t.err
}

func TestTaskRegistry(t *testing.T) {
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(&countingTask{name: "a", schedule: "@every 1s"}))
	assert.Error(t, reg.Register(&countingTask{name: "a", schedule: "@every 1s"}))

	_, ok := reg.Get("a")
	assert.True(t, ok)
	_, ok = reg.Get("b")
	assert.False(t, ok)
	assert.Len(t, reg.All(), 1)
}

func TestRunner_RunNow(t *testing.T) {
	reg := NewTaskRegistry()
	boom := errors.New("boom")
	ok := &countingTask{name: "ok", schedule: "@every 1h"}
	bad := &countingTask{name: "bad", schedule: "@every 1h", err: boom}
	require.NoError(t, reg.Register(ok))
	require.NoError(t, reg.Register(bad))

	r := NewRunner(reg)
	require.NoError(t, r.RunNow(context.Background(), "ok"))
	assert.ErrorIs(t, r.RunNow(context.Background(), "bad"), boom)
	assert.Error(t, r.RunNow(context.Background(), "missing"))
	assert.Equal(t, int32(1), ok.runs.Load())
}

func TestRunner_StartRunsScheduledTasks(t *testing.T) {
	reg := NewTaskRegistry()
	task := &countingTask{name: "tick", schedule: "* * * * * *"}
	require.NoError(t, reg.Register(task))

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	require.NoError(t, NewRunner(reg).Start(ctx))
	assert.GreaterOrEqual(t, task.runs.Load(), int32(1))
}

func TestRunner_StartRejectsBadSchedule(t *testing.T) {
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(&countingTask{name: "bad", schedule: "not a schedule"}))

	err := NewRunner(reg).Start(context.Background())
	assert.Error(t, err)
}

type blockingTask struct {
	started chan struct{}
	release chan struct{}
}

func (t *blockingTask) Name() string           { return "slow" }
func (t *blockingTask) Schedule() string       { return "@every 1h" }
func (t *blockingTask) Timeout() time.Duration { return 5 * time.Second }
func (t *blockingTask) Run(ctx context.Context) error {
	close(t.started)
	<-t.release
	return nil
}

func TestRunner_StopWaitsForRunNowAndRejectsLaterCalls(t *testing.T) {
	reg := NewTaskRegistry()
	slow := &blockingTask{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, reg.Register(slow))
	r := NewRunner(reg)

	runErr := make(chan error, 1)
	go func() { runErr <- r.RunNow(context.Background(), "slow") }()
	<-slow.started

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a task was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(slow.release)
	require.NoError(t, <-runErr)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the task finished")
	}

	assert.ErrorIs(t, r.RunNow(context.Background(), "slow"), ErrStopped)
}
