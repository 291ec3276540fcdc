package task

import (
	"fmt"
	"sync"
	"time"
)

// Observer is notified exactly once, after a TaskRun reaches its
// terminal state. Observer faults are logged and swallowed by the
// worker that invokes them (spec.md §4.4's observer contract).
type Observer func(*TaskRun)

// TaskRun is the mutable record of one task invocation. It is co-owned
// by the worker goroutine executing it (which mutates it exactly once,
// under mu, when the run completes) and whichever caller holds the
// returned handle (which only reads it, via the accessor methods).
type TaskRun struct {
	mu sync.Mutex

	id       string
	taskName string
	startTS  float64
	endTS    *float64
	rc       *int
	err      string
	extra    map[string]any
}

// newTaskRun creates a run record with a microsecond-stable id, per
// spec.md §3: "{task_name}_{start_ts formatted to microsecond width
// 15.6}".
func newTaskRun(taskName string, start time.Time) *TaskRun {
	ts := float64(start.UnixNano()) / 1e9
	return &TaskRun{
		id:       fmt.Sprintf("%s_%015.6f", taskName, ts),
		taskName: taskName,
		startTS:  ts,
	}
}

// ID returns the run's stable identifier.
func (r *TaskRun) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// TaskName returns the name of the task this run belongs to.
func (r *TaskRun) TaskName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taskName
}

// StartTS returns the run's start time as fractional seconds.
func (r *TaskRun) StartTS() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTS
}

// Terminal reports whether the run has reached a terminal state along
// with its recorded rc (the process exit code, or 1 when the run failed
// without one) and err text (empty if none).
func (r *TaskRun) Terminal() (done bool, rc int, errText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endTS == nil {
		return false, 0, ""
	}
	if r.rc != nil {
		rc = *r.rc
	}
	return true, rc, r.err
}

// Duration returns end_ts - start_ts and true, or (0, false) if the run
// has not yet completed.
func (r *TaskRun) Duration() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endTS == nil {
		return 0, false
	}
	return *r.endTS - r.startTS, true
}

func (r *TaskRun) complete(end time.Time, rc int, runErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := float64(end.UnixNano()) / 1e9
	r.endTS = &ts
	r.rc = &rc
	if runErr != nil {
		r.err = runErr.Error()
	}
}
