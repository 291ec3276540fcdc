// Package scheduler implements the Periodic Scheduler (spec component
// C5): a cooperative timer loop that fires tasks at declared intervals,
// polling every 250ms.
package scheduler

import (
	"sync"
	"time"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/log"
	"github.com/firestige/taskctl/internal/metrics"
	"github.com/firestige/taskctl/internal/task"
)

const tickInterval = 250 * time.Millisecond

// Runner is the subset of *task.Manager the scheduler needs — narrowed
// to ease testing with a fake.
type Runner interface {
	Run(taskDef *catalog.Task, args map[string]any, observers []task.Observer) (*task.TaskRun, error)
}

type entry struct {
	taskDef  *catalog.Task
	sched    catalog.Schedule
	nextFire time.Time
}

// Scheduler owns a dedicated goroutine that fires scheduled tasks.
// Start/Stop are idempotent toward their respective states, per
// spec.md §4.5.
type Scheduler struct {
	mu      sync.Mutex
	runner  Runner
	entries []entry

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	now func() time.Time // overridable for tests
}

// New builds a Scheduler bound to runner. Call Start with the current
// task list to (re)build the schedule-entry table and launch the tick
// loop.
func New(runner Runner) *Scheduler {
	return &Scheduler{runner: runner, now: time.Now}
}

// Start launches the tick loop. Calling Start while already running
// logs a warning and does not spawn a second loop (spec.md §8
// property 7).
func (s *Scheduler) Start(tasks []*catalog.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		log.GetLogger().Warn("scheduler: start called while already running, ignoring")
		return
	}

	load := s.now()
	s.entries = s.entries[:0]
	for _, t := range tasks {
		for _, sched := range t.Schedule {
			s.entries = append(s.entries, entry{
				taskDef:  t,
				sched:    sched,
				nextFire: initialNextFire(sched, load),
			})
		}
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	go s.loop(s.stopCh, s.doneCh)
}

// Stop signals the loop and waits for it to exit. In-flight task
// invocations are not affected — they run on the execution pool, not
// the scheduler goroutine. Safe to call more than once or when not
// running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	metrics.SchedulerTicks.Inc()
	now := s.now()

	s.mu.Lock()
	var toFire []int
	for i := range s.entries {
		if !s.entries[i].nextFire.After(now) {
			toFire = append(toFire, i)
		}
	}
	for _, i := range toFire {
		s.entries[i].nextFire = nextFireAfter(s.entries[i].sched, s.entries[i].nextFire, now)
	}
	fireEntries := make([]entry, 0, len(toFire))
	for _, i := range toFire {
		fireEntries = append(fireEntries, s.entries[i])
	}
	s.mu.Unlock()

	for _, e := range fireEntries {
		s.fire(e.taskDef)
	}
}

func (s *Scheduler) fire(taskDef *catalog.Task) {
	_, err := s.runner.Run(taskDef, map[string]any{}, nil)
	if err != nil {
		log.GetLogger().WithField("task", taskDef.Name).WithError(err).Debug("scheduler: tick fire gated")
	}
}
