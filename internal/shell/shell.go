// Package shell implements the Interactive Shell (spec component C6): a
// line-oriented REPL over standard input/output.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/task"
)

// Runner is the subset of the execution core the shell drives.
type Runner interface {
	GetTask(name string) (*catalog.Task, bool)
	TaskList() []string
	TaskStatus() map[string]int
	Run(taskDef *catalog.Task, args map[string]any, observers []task.Observer) (*task.TaskRun, error)
}

// Lifecycle is satisfied by the scheduler and chat controller: both
// expose Start/Stop/Running for the shell's *_start/_stop/_status
// commands.
type Lifecycle interface {
	Stop()
	Running() bool
}

// SchedulerLifecycle additionally needs the current task list to
// (re)build its fire-time table on Start.
type SchedulerLifecycle interface {
	Lifecycle
	Start(tasks []*catalog.Task)
}

// ChatLifecycle starts without arguments and may fail (e.g. bad token).
type ChatLifecycle interface {
	Lifecycle
	Start() error
}

// Shell is the REPL. ShutdownFunc is invoked once, from the "shutdown"
// command, after the scheduler and chat controller have been stopped.
type Shell struct {
	in     *bufio.Scanner
	out    io.Writer
	runner Runner
	tasks  []*catalog.Task

	scheduler SchedulerLifecycle
	chat      ChatLifecycle

	ShutdownFunc func()
}

// New builds a Shell reading commands from in and writing replies to
// out.
func New(in io.Reader, out io.Writer, runner Runner, tasks []*catalog.Task, scheduler SchedulerLifecycle, chat ChatLifecycle) *Shell {
	return &Shell{
		in:        bufio.NewScanner(in),
		out:       out,
		runner:    runner,
		tasks:     tasks,
		scheduler: scheduler,
		chat:      chat,
	}
}

// Run blocks reading lines until stdin closes or a command calls exit
// or shutdown.
func (s *Shell) Run() {
	fmt.Fprintln(s.out, "taskctl interactive shell. Type 'help' for commands.")
	for s.in.Scan() {
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if s.dispatch(line) {
			return
		}
	}
}

// dispatch handles one line; returns true if the REPL should exit.
func (s *Shell) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case "run":
		s.cmdRun(rest)
	case "tasklist":
		s.cmdTaskList()
	case "task_status":
		s.cmdTaskStatus()
	case "scheduler_start":
		s.cmdSchedulerStart()
	case "scheduler_stop":
		s.cmdLifecycleStop(s.scheduler, "scheduler")
	case "scheduler_status":
		s.cmdLifecycleStatus(s.scheduler, "scheduler")
	case "telegram_start":
		s.cmdChatStart()
	case "telegram_stop":
		s.cmdLifecycleStop(s.chat, "telegram")
	case "telegram_status":
		s.cmdLifecycleStatus(s.chat, "telegram")
	case "shutdown":
		s.cmdShutdown()
		return true
	case "exit":
		return true
	case "help", "?":
		s.cmdHelp()
	default:
		fmt.Fprintf(s.out, "unknown command: %s (try 'help')\n", cmd)
	}
	return false
}

func (s *Shell) cmdRun(tokens []string) {
	if len(tokens) == 0 {
		fmt.Fprintln(s.out, "usage: run <name> [k=v ...]")
		return
	}
	name := tokens[0]
	args := parseRunArgs(tokens[1:])

	taskDef, ok := s.runner.GetTask(name)
	if !ok {
		fmt.Fprintf(s.out, "Task '%s' not found\n", name)
		return
	}

	observer := func(r *task.TaskRun) {
		_, rc, errText := r.Terminal()
		fmt.Fprintf(s.out, "Task %s completed: run_rc=%d, run_ex=%s\n", r.ID(), rc, errText)
	}

	run, err := s.runner.Run(taskDef, args, []task.Observer{observer})
	if err != nil {
		fmt.Fprintf(s.out, "Task '%s' refused: %v\n", name, err)
		return
	}
	fmt.Fprintf(s.out, "Task %s started\n", run.ID())
}

// parseRunArgs implements spec.md §4.6's run-argument grammar:
// NAME=VALUE tokens become string entries, bare tokens become
// boolean-true entries.
func parseRunArgs(tokens []string) map[string]any {
	args := make(map[string]any, len(tokens))
	for _, tok := range tokens {
		if idx := strings.Index(tok, "="); idx > 0 {
			args[tok[:idx]] = tok[idx+1:]
		} else {
			args[tok] = true
		}
	}
	return args
}

func (s *Shell) cmdTaskList() {
	names := s.runner.TaskList()
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(s.out, "\t%s\n", n)
	}
}

func (s *Shell) cmdTaskStatus() {
	status := s.runner.TaskStatus()
	names := make([]string, 0, len(status))
	for n := range status {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(s.out, "%s\t%d\n", n, status[n])
	}
}

func (s *Shell) cmdSchedulerStart() {
	if s.scheduler == nil {
		fmt.Fprintln(s.out, "scheduler not enabled")
		return
	}
	s.scheduler.Start(s.tasks)
	fmt.Fprintln(s.out, "scheduler started")
}

func (s *Shell) cmdChatStart() {
	if s.chat == nil {
		fmt.Fprintln(s.out, "telegram not enabled")
		return
	}
	if err := s.chat.Start(); err != nil {
		fmt.Fprintf(s.out, "telegram start failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "telegram started")
}

func (s *Shell) cmdLifecycleStop(l Lifecycle, label string) {
	if l == nil {
		fmt.Fprintf(s.out, "%s not enabled\n", label)
		return
	}
	l.Stop()
	fmt.Fprintf(s.out, "%s stopped\n", label)
}

func (s *Shell) cmdLifecycleStatus(l Lifecycle, label string) {
	if l == nil {
		fmt.Fprintf(s.out, "%s: disabled\n", label)
		return
	}
	fmt.Fprintf(s.out, "%s: running=%v\n", label, l.Running())
}

func (s *Shell) cmdShutdown() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.chat != nil {
		s.chat.Stop()
	}
	if s.ShutdownFunc != nil {
		s.ShutdownFunc()
	}
}

func (s *Shell) cmdHelp() {
	fmt.Fprintln(s.out, `Commands:
  run <name> [k=v ...]   submit a task run
  tasklist               list task names
  task_status            show running-count table
  scheduler_start/stop/status
  telegram_start/stop/status
  shutdown               stop scheduler and telegram, then exit (waits for running tasks)
  exit                   exit the shell only
  help, ?                this message`)
}
