package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/aimhigh31/work-ten-sub018/internal/logging"
)

// ErrStopped is returned for executions requested after Stop.
var ErrStopped = errors.New("task runner stopped")

// Runner manages and executes scheduled background tasks
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *logrus.Entry

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRunner creates a new task runner
func NewRunner(registry *TaskRegistry) *Runner {
	return &Runner{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		logger:   logging.WithComponent("runner"),
	}
}

// Start schedules every registered task and blocks until ctx is done, then
// waits for running tasks to finish.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("Starting task runner")

	for name, task := range r.registry.All() {
		r.logger.WithFields(logrus.Fields{"task": name, "schedule": task.Schedule()}).Info("Registering task")

		_, err := r.cron.AddFunc(task.Schedule(), func() {
			r.executeTask(ctx, task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
	}

	r.cron.Start()
	r.logger.Info("Task runner started")

	<-ctx.Done()
	r.Stop()
	return nil
}

// RunNow executes a registered task once, outside its schedule.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return r.executeTask(ctx, task)
}

// executeTask runs a single task with timeout and error handling
func (r *Runner) executeTask(ctx context.Context, task Task) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	log := r.logger.WithField("task", task.Name())
	log.Debug("Executing task")

	start := time.Now()
	err := task.Run(taskCtx)
	log = log.WithField("duration", time.Since(start).String())

	if err != nil {
		log.WithError(err).Warn("Task failed")
		return err
	}
	log.Debug("Task completed")
	return nil
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.logger.Info("Stopping task runner")

	// No new executions once stopped, so wg.Wait cannot race an Add
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := r.cron.Stop()

	// Wait for scheduled runs, then any RunNow calls still in flight
	<-done.Done()
	r.wg.Wait()

	r.logger.Info("Task runner stopped")
}
