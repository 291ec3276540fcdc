package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/firestige/taskctl/internal/log"
)

// wireTask is the on-wire shape of a catalog entry (spec.md §6's
// tasklist entries), kept separate from the immutable Task record so
// that default-arg and schedule-unit parsing can validate and skip
// individual bad entries without failing the whole catalog load.
type wireTask struct {
	Name        string                  `json:"name" yaml:"name"`
	Type        string                  `json:"type" yaml:"type"`
	Description string                  `json:"description" yaml:"description"`
	Singleton   bool                    `json:"singleton" yaml:"singleton"`
	Conflict    []string                `json:"conflict" yaml:"conflict"`
	Args        map[string]wireArgSpec  `json:"args" yaml:"args"`
	Command     []string                `json:"command" yaml:"command"`
	Schedule    [][]any                 `json:"schedule" yaml:"schedule"`
}

type wireArgSpec struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Default     any    `json:"default" yaml:"default"`
}

type wireDocument struct {
	Tasklist []wireTask `json:"tasklist" yaml:"tasklist"`
}

// ParseAuto detects JSON vs YAML from filename's extension and parses
// the tasklist into Task records.
func ParseAuto(data []byte, filename string) ([]*Task, error) {
	var doc wireDocument
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("catalog: parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("catalog: parse JSON: %w", err)
		}
	}
	return buildTasks(doc.Tasklist), nil
}

// Parse parses a JSON catalog document.
func Parse(data []byte) ([]*Task, error) {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse JSON: %w", err)
	}
	return buildTasks(doc.Tasklist), nil
}

// buildTasks converts wire entries into immutable Task records.
// Catalog loading is idempotent and deterministic: two calls over the
// same bytes always produce identical records (no randomness, no
// environment-dependent defaulting beyond what's declared).
func buildTasks(wire []wireTask) []*Task {
	tasks := make([]*Task, 0, len(wire))
	for _, w := range wire {
		tasks = append(tasks, buildTask(w))
	}
	return tasks
}

func buildTask(w wireTask) *Task {
	t := &Task{
		Name:        w.Name,
		Type:        w.Type,
		Description: w.Description,
		Command:     w.Command,
		Singleton:   w.Singleton,
		Conflict:    w.Conflict,
	}
	if t.Type == "" {
		t.Type = "subprocess"
	}

	argNames := make([]string, 0, len(w.Args))
	for name := range w.Args {
		argNames = append(argNames, name)
	}
	sort.Strings(argNames)
	for _, name := range argNames {
		t.Args = append(t.Args, buildArgSpec(w.Name, name, w.Args[name]))
	}

	for _, triple := range w.Schedule {
		sched, ok := buildSchedule(w.Name, triple)
		if ok {
			t.Schedule = append(t.Schedule, sched)
		}
	}
	return t
}

func buildArgSpec(taskName, argName string, spec wireArgSpec) ArgSpec {
	a := ArgSpec{
		Name:        argName,
		Type:        ArgType(spec.Type),
		Description: spec.Description,
	}
	if spec.Default == nil {
		return a
	}
	typed, err := parseTypedDefault(a.Type, spec.Default)
	if err != nil {
		log.GetLogger().WithFields(map[string]interface{}{
			"task": taskName,
			"arg":  argName,
		}).WithError(err).Warn("catalog: dropping unparseable argument default")
		return a
	}
	a.Default = typed
	return a
}

// numericValue normalizes a decoded numeric literal to float64.
// encoding/json always produces float64 for numbers, but yaml.v3
// decodes integer literals into int (and large ones into int64), so
// both catalog input formats must be accepted here.
func numericValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// parseTypedDefault parses a JSON- or YAML-decoded literal into its
// declared Go type.
func parseTypedDefault(t ArgType, raw any) (any, error) {
	switch t {
	case ArgString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil
	case ArgInt:
		if f, ok := numericValue(raw); ok {
			return int64(f), nil
		}
		if s, ok := raw.(string); ok {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("expected int, got %q", s)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected int, got %T", raw)
	case ArgFloat:
		if f, ok := numericValue(raw); ok {
			return f, nil
		}
		if s, ok := raw.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("expected float, got %q", s)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expected float, got %T", raw)
	case ArgBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expected bool, got %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected bool, got %T", raw)
	default:
		return nil, fmt.Errorf("unknown arg type %q", t)
	}
}

func buildSchedule(taskName string, triple []any) (Schedule, bool) {
	if len(triple) < 2 {
		log.GetLogger().WithField("task", taskName).Warn("catalog: dropping malformed schedule triple (need interval, unit)")
		return Schedule{}, false
	}
	intervalF, ok := numericValue(triple[0])
	if !ok {
		log.GetLogger().WithField("task", taskName).Warn("catalog: dropping schedule triple with non-numeric interval")
		return Schedule{}, false
	}
	unitS, ok := triple[1].(string)
	if !ok {
		log.GetLogger().WithField("task", taskName).Warn("catalog: dropping schedule triple with non-string unit")
		return Schedule{}, false
	}
	unit := ScheduleUnit(strings.ToLower(unitS))
	if !validUnits[unit] {
		log.GetLogger().WithFields(map[string]interface{}{
			"task": taskName,
			"unit": unitS,
		}).Warn("catalog: dropping schedule triple with invalid unit")
		return Schedule{}, false
	}
	sched := Schedule{Interval: int(intervalF), Unit: unit}
	if len(triple) >= 3 {
		if at, ok := triple[2].(string); ok {
			sched.At = at
		}
	}
	return sched, true
}
