// Package cron runs named periodic tasks on a dedicated goroutine and
// injects their inner commands into the shared request queue. It never
// touches world state directly.
package cron

import (
	"context"
	"fmt"
	"time"

	"zandagort/internal/core"
)

type task struct {
	name     string
	interval time.Duration
	command  core.InnerCommand
	next     time.Time
}

// Scheduler polls on a fixed base delay and enqueues every task whose due
// time has passed. A task advances by exactly one interval per fire; when
// the scheduler was stalled past several due times, the missed ticks are
// skipped rather than queued in a burst.
type Scheduler struct {
	queue *core.Queue
	base  time.Duration
	log   core.Logger // may be nil
	tasks []*task

	now func() time.Time // test hook
}

func New(queue *core.Queue, baseDelay time.Duration, logger core.Logger) *Scheduler {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Scheduler{
		queue: queue,
		base:  baseDelay,
		log:   logger,
		now:   time.Now,
	}
}

// Add registers a task. All tasks are registered before Run starts; there
// is no runtime removal.
func (s *Scheduler) Add(name string, interval time.Duration, command core.InnerCommand) error {
	if interval <= 0 {
		return fmt.Errorf("cron task %s: interval must be positive, got %v", name, interval)
	}
	for _, t := range s.tasks {
		if t.name == name {
			return fmt.Errorf("cron task %s: duplicate name", name)
		}
	}
	s.tasks = append(s.tasks, &task{name: name, interval: interval, command: command})
	return nil
}

// Run polls until ctx is cancelled. A failure in one task's fire is logged
// and must not stop the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	s.prime(s.now())
	ticker := time.NewTicker(s.base)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runDue(s.now())
		}
	}
}

// prime schedules every task one full interval from now.
func (s *Scheduler) prime(now time.Time) {
	for _, t := range s.tasks {
		t.next = now.Add(t.interval)
	}
}

// runDue fires every due task once and reports how many fired.
func (s *Scheduler) runDue(now time.Time) int {
	fired := 0
	for _, t := range s.tasks {
		if now.Before(t.next) {
			continue
		}
		s.fire(t)
		fired++
		t.next = t.next.Add(t.interval)
		// Skip ticks the scheduler slept through; one fire per wakeup.
		for !now.Before(t.next) {
			t.next = t.next.Add(t.interval)
		}
	}
	return fired
}

func (s *Scheduler) fire(t *task) {
	defer func() {
		if r := recover(); r != nil {
			s.logSysf("cron task %s: enqueue failed: %v", t.name, r)
		}
	}()
	s.queue.Enqueue(core.WorkItem{Inner: t.command})
}

func (s *Scheduler) logSysf(format string, args ...any) {
	if s.log == nil {
		return
	}
	_ = s.log.WriteSys(core.SysEntry{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Message: fmt.Sprintf(format, args...),
	})
}
