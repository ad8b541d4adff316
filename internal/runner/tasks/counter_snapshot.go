package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/runner"
)

const (
	CounterSnapshotName = "counter-snapshot"

	defaultSnapshotSchedule = "@every 1m"
	defaultSnapshotTimeout  = 30 * time.Second
)

// CounterSnapshotTask publishes the current counter values as gauges. It only
// reads counter state.
type CounterSnapshotTask struct {
	inspector counter.Inspector
	metrics   *codegen.Metrics
	schedule  string
	timeout   time.Duration
	logger    *logrus.Entry
}

// NewCounterSnapshotTask creates a new counter snapshot task. Empty schedule or
// zero timeout fall back to every minute and 30 seconds.
func NewCounterSnapshotTask(inspector counter.Inspector, metrics *codegen.Metrics, schedule string, timeout time.Duration) runner.Task {
	if schedule == "" {
		schedule = defaultSnapshotSchedule
	}
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	return &CounterSnapshotTask{
		inspector: inspector,
		metrics:   metrics,
		schedule:  schedule,
		timeout:   timeout,
		logger:    logging.WithComponent("counter-snapshot"),
	}
}

func (t *CounterSnapshotTask) Name() string           { return CounterSnapshotName }
func (t *CounterSnapshotTask) Schedule() string       { return t.schedule }
func (t *CounterSnapshotTask) Timeout() time.Duration { return t.timeout }

func (t *CounterSnapshotTask) Run(ctx context.Context) error {
	recs, err := t.inspector.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list counters: %w", err)
	}
	t.metrics.SetCounters(recs)
	t.logger.WithField("counters", len(recs)).Debug("Counter snapshot refreshed")
	return nil
}
