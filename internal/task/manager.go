// Package task implements the Execution Core (spec component C4): a
// thread-safe task registry, singleton/conflict gating performed
// atomically with submission, a worker pool, TaskRun records, and
// observer fan-out on completion.
package task

import (
	"context"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/log"
	"github.com/firestige/taskctl/internal/metrics"
	"github.com/firestige/taskctl/internal/template"
)

// Manager owns the task registry, the running-count map, and the
// worker pool. All access to the running-count map happens under mu;
// the gating decision and the running_count reservation are performed
// as a single critical section (spec.md §4.4), closing the race the
// source implementation left open by incrementing inside the worker.
type Manager struct {
	mu sync.Mutex

	tasks        map[string]*catalog.Task
	runningCount map[string]int

	wg sync.WaitGroup // tracks in-flight worker goroutines, for graceful Stop

	stopping bool
}

// NewManager builds a Manager from a parsed catalog.
func NewManager(tasks []*catalog.Task) *Manager {
	byName := make(map[string]*catalog.Task, len(tasks))
	for _, t := range tasks {
		byName[t.Name] = t
	}
	return &Manager{
		tasks:        byName,
		runningCount: make(map[string]int),
	}
}

// GetTask is an O(1) lookup.
func (m *Manager) GetTask(name string) (*catalog.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[name]
	return t, ok
}

// TaskList returns task names in sorted order.
func (m *Manager) TaskList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tasks))
	for n := range m.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TaskStatus returns a snapshot of the running-count map. Zero-valued
// entries are never present (spec.md §3's running-count invariant).
func (m *Manager) TaskStatus() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]int, len(m.runningCount))
	for k, v := range m.runningCount {
		if v > 0 {
			snap[k] = v
		}
	}
	return snap
}

// Run attempts to submit task for execution with the given argument
// mapping and observers. It returns ErrGateSingleton or ErrGateConflict
// (checkable via errors.Is) if gating refuses the submission, or a
// *TaskRun handle for an accepted submission — never both.
//
// The gating check and the running_count reservation happen under mu,
// before the composite worker is ever started, exactly as spec.md §4.4
// requires: reserving the slot after submission would allow two
// concurrent singleton submissions to both pass the check.
func (m *Manager) Run(taskDef *catalog.Task, args map[string]any, observers []Observer) (*TaskRun, error) {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil, ErrGateConflict
	}
	if taskDef.Singleton && m.runningCount[taskDef.Name] > 0 {
		m.mu.Unlock()
		metrics.GateRefusalsTotal.WithLabelValues(taskDef.Name, "singleton").Inc()
		return nil, ErrGateSingleton
	}
	for _, c := range taskDef.Conflict {
		if m.runningCount[c] > 0 {
			m.mu.Unlock()
			metrics.GateRefusalsTotal.WithLabelValues(taskDef.Name, "conflict").Inc()
			return nil, ErrGateConflict
		}
	}
	m.runningCount[taskDef.Name]++
	metrics.RunningTasks.WithLabelValues(taskDef.Name).Set(float64(m.runningCount[taskDef.Name]))
	run := newTaskRun(taskDef.Name, time.Now())
	m.wg.Add(1)
	m.mu.Unlock()

	metrics.TaskRunsStarted.WithLabelValues(taskDef.Name).Inc()

	go m.execute(taskDef, run, args, observers)

	return run, nil
}

// execute is the composite worker body (spec.md §4.4): resolve the
// command template, invoke the subprocess, and — always, via defer —
// finalize the run, decrement the running count, and fan the run out
// to observers.
func (m *Manager) execute(taskDef *catalog.Task, run *TaskRun, args map[string]any, observers []Observer) {
	defer m.wg.Done()

	start := time.Now()
	var rc int
	var runErr error

	defer func() {
		run.complete(time.Now(), rc, runErr)
		m.releaseSlot(taskDef.Name)
		metrics.TaskRunDuration.WithLabelValues(taskDef.Name).Observe(time.Since(start).Seconds())
		m.notifyObservers(observers, run)
	}()

	templateCtx := mergeArgs(taskDef.DefaultArgs(), args)
	argv := template.ExpandAll(taskDef.Command, templateCtx)
	if len(argv) == 0 {
		runErr = errEmptyCommand
		rc = 1
		return
	}

	cmd := exec.CommandContext(context.Background(), argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		runErr = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			rc = exitErr.ExitCode()
		} else {
			rc = 1
		}
		return
	}
	rc = 0
}

func (m *Manager) releaseSlot(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runningCount[name]--
	if m.runningCount[name] <= 0 {
		delete(m.runningCount, name)
		metrics.RunningTasks.DeleteLabelValues(name)
		return
	}
	metrics.RunningTasks.WithLabelValues(name).Set(float64(m.runningCount[name]))
}

func (m *Manager) notifyObservers(observers []Observer, run *TaskRun) {
	for _, o := range observers {
		safeInvoke(o, run)
	}
}

func safeInvoke(o Observer, run *TaskRun) {
	defer func() {
		if r := recover(); r != nil {
			log.GetLogger().WithField("run", run.ID()).Errorf("task: observer panicked: %v", r)
		}
	}()
	o(run)
}

func mergeArgs(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// StopAll marks the manager as stopping (refusing new submissions) and
// waits for all in-flight runs to finish. Matches spec.md §4.8's
// shutdown contract: stop new starts, let running pool tasks finish.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.stopping = true
	m.mu.Unlock()
	m.wg.Wait()
}
