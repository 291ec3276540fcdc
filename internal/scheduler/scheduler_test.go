package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/task"
)

type countingRunner struct {
	mu    sync.Mutex
	count map[string]int
}

func newCountingRunner() *countingRunner {
	return &countingRunner{count: make(map[string]int)}
}

func (r *countingRunner) Run(taskDef *catalog.Task, args map[string]any, observers []task.Observer) (*task.TaskRun, error) {
	r.mu.Lock()
	r.count[taskDef.Name]++
	r.mu.Unlock()
	return nil, nil
}

func (r *countingRunner) total(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count[name]
}

func TestSchedulerFiresPerSecondTask(t *testing.T) {
	runner := newCountingRunner()
	s := New(runner)
	tick := &catalog.Task{
		Name:     "tick",
		Command:  []string{"true"},
		Schedule: []catalog.Schedule{{Interval: 1, Unit: catalog.UnitSeconds}},
	}

	s.Start([]*catalog.Task{tick})
	defer s.Stop()

	require.Eventually(t, func() bool {
		return runner.total("tick") >= 2
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerStartIdempotent(t *testing.T) {
	runner := newCountingRunner()
	s := New(runner)
	tick := &catalog.Task{Name: "tick", Command: []string{"true"}, Schedule: []catalog.Schedule{{Interval: 1, Unit: catalog.UnitSeconds}}}

	s.Start([]*catalog.Task{tick})
	s.Start([]*catalog.Task{tick}) // should log + no-op, not panic or double-fire rate
	defer s.Stop()

	assert.True(t, s.Running())
}

func TestSchedulerStopIdempotent(t *testing.T) {
	runner := newCountingRunner()
	s := New(runner)
	s.Start(nil)
	s.Stop()
	assert.NotPanics(t, func() { s.Stop() })
	assert.False(t, s.Running())
}

func TestInitialNextFireSeconds(t *testing.T) {
	load := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sched := catalog.Schedule{Interval: 5, Unit: catalog.UnitSeconds}
	next := initialNextFire(sched, load)
	assert.Equal(t, load.Add(5*time.Second), next)
}

func TestWeekdayNextFire(t *testing.T) {
	// 2026-01-01 is a Thursday.
	load := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sched := catalog.Schedule{Interval: 1, Unit: catalog.UnitMonday, At: "09:30"}
	next := initialNextFire(sched, load)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.True(t, next.After(load))
}
