// Package chat implements the Chat Controller (spec component C7): a
// conversational command surface driving task-selection, argument
// editing, and confirmation through a per-user finite-state machine.
package chat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/task"
)

// Runner is the subset of the execution core the controller drives.
type Runner interface {
	GetTask(name string) (*catalog.Task, bool)
	TaskList() []string
	Run(taskDef *catalog.Task, args map[string]any, observers []task.Observer) (*task.TaskRun, error)
}

// Outbound abstracts the messaging protocol's send/edit operations so
// the FSM in this file can be tested without a live bot connection.
type Outbound interface {
	SendText(chatID int64, text string)
	SendKeyboard(chatID int64, text string, rows [][]Button)
	EditRemoveKeyboard(chatID int64, messageID int)
}

// Update is a protocol-agnostic inbound event: either a plain text
// message or a callback-query (inline button press).
type Update struct {
	ChatID       int64
	UserID       int64
	Text         string
	IsCallback   bool
	CallbackData string
	MessageID    int
}

// Controller owns per-user session state and the user allowlist.
type Controller struct {
	runner    Runner
	out       Outbound
	allowlist map[int64]bool

	mu       sync.Mutex
	sessions map[int64]*Session
}

// New builds a Controller. allowedUsers holds the string-form user ids
// from config (spec.md §6's telegram.users); unparseable entries are
// ignored — they simply never match, so access still defaults closed.
func New(runner Runner, out Outbound, allowedUsers []string) *Controller {
	allow := make(map[int64]bool, len(allowedUsers))
	for _, u := range allowedUsers {
		var id int64
		if _, err := fmt.Sscanf(u, "%d", &id); err == nil {
			allow[id] = true
		}
	}
	return &Controller{
		runner:    runner,
		out:       out,
		allowlist: allow,
		sessions:  make(map[int64]*Session),
	}
}

// HandleUpdate processes one inbound event. Updates from a user not on
// the allowlist are rejected without any reply and without touching
// session state (spec.md §4.7, property 8 in spec.md §8).
func (c *Controller) HandleUpdate(u Update) {
	if !c.allowlist[u.UserID] {
		return
	}

	if !u.IsCallback && u.Text == "/cancel" {
		c.drop(u.ChatID)
		return
	}
	if !u.IsCallback && u.Text == "/tasklist" {
		c.replyTaskList(u.ChatID)
		return
	}
	if !u.IsCallback && hasPrefix(u.Text, "/run") {
		c.handleRunCommand(u)
		return
	}

	sess := c.sessionFor(u.ChatID)
	if sess == nil {
		return // no active conversation and not a recognized bare command
	}

	switch sess.State {
	case StateAskTask:
		c.handleAskTask(u, sess)
	case StateAskArgs:
		c.handleAskArgs(u, sess)
	case StateAskConfirm:
		c.handleAskConfirm(u, sess)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (c *Controller) sessionFor(chatID int64) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[chatID]
}

func (c *Controller) setSession(chatID int64, sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[chatID] = sess
}

func (c *Controller) drop(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, chatID)
}

func (c *Controller) replyTaskList(chatID int64) {
	names := c.runner.TaskList()
	sort.Strings(names)
	c.out.SendText(chatID, fmt.Sprintf("tasks: %s", joinComma(names)))
}

func joinComma(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// handleRunCommand parses "/run" or "/run <name>". A named task that
// doesn't exist re-prompts with an ASK_TASK keyboard prefixed
// "Task name not found." per spec.md §4.7.
func (c *Controller) handleRunCommand(u Update) {
	name := parseRunArgument(u.Text)
	if name == "" {
		c.presentTaskKeyboard(u.ChatID, "")
		return
	}
	taskDef, ok := c.runner.GetTask(name)
	if !ok {
		c.presentTaskKeyboard(u.ChatID, "Task name not found.")
		return
	}
	c.initConversation(u.ChatID, taskDef)
}

func parseRunArgument(text string) string {
	const prefix = "/run"
	rest := text[len(prefix):]
	for len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return rest
}

func (c *Controller) presentTaskKeyboard(chatID int64, prefix string) {
	sess := newSession()
	sess.State = StateAskTask
	c.setSession(chatID, sess)

	names := c.runner.TaskList()
	sort.Strings(names)
	label := "Choose a task:"
	if prefix != "" {
		label = prefix + " " + label
	}
	c.out.SendKeyboard(chatID, label, taskKeyboard(names))
}

// initConversation implements spec.md §4.7's init(task): tasks with no
// declared args skip straight to confirmation.
func (c *Controller) initConversation(chatID int64, taskDef *catalog.Task) {
	sess := newSession()
	sess.Task = taskDef
	if len(taskDef.Args) == 0 {
		sess.Args = map[string]any{}
		sess.State = StateAskConfirm
		c.setSession(chatID, sess)
		c.out.SendKeyboard(chatID, fmt.Sprintf("Run %s?", taskDef.Name), confirmKeyboard())
		return
	}
	sess.Args = copyArgs(taskDef.DefaultArgs())
	sess.State = StateAskArgs
	c.setSession(chatID, sess)
	c.out.SendKeyboard(chatID, fmt.Sprintf("Arguments for %s:", taskDef.Name), argsKeyboard(taskDef, sess.Args))
}

func copyArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (c *Controller) handleAskTask(u Update, sess *Session) {
	if !u.IsCallback {
		return
	}
	taskDef, ok := c.runner.GetTask(u.CallbackData)
	if !ok {
		return
	}
	c.out.EditRemoveKeyboard(u.ChatID, u.MessageID)
	c.initConversation(u.ChatID, taskDef)
}

func (c *Controller) handleAskArgs(u Update, sess *Session) {
	if u.IsCallback {
		switch u.CallbackData {
		case callbackRun:
			sess.State = StateAskConfirm
			c.out.SendKeyboard(u.ChatID, fmt.Sprintf("Run %s?", sess.Task.Name), confirmKeyboard())
			return
		default:
			// callback data names an argument to edit.
			if contains(sess.Task.ArgNames(), u.CallbackData) {
				sess.PendingArg = u.CallbackData
				c.out.SendText(u.ChatID, fmt.Sprintf("Send a new value for %s:", u.CallbackData))
			}
			return
		}
	}

	// Plain text: store as the pending arg's value, then re-present.
	if sess.PendingArg != "" {
		sess.Args[sess.PendingArg] = u.Text
		sess.PendingArg = ""
	}
	c.out.SendKeyboard(u.ChatID, fmt.Sprintf("Arguments for %s:", sess.Task.Name), argsKeyboard(sess.Task, sess.Args))
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Controller) handleAskConfirm(u Update, sess *Session) {
	if !u.IsCallback {
		return
	}
	switch u.CallbackData {
	case callbackYes, callbackRun:
		c.submitRun(u.ChatID, sess)
		c.drop(u.ChatID)
	case callbackNo:
		c.out.SendKeyboard(u.ChatID, "Run, go back, or cancel?", reviseKeyboard())
	case callbackBack:
		sess.State = StateAskArgs
		c.out.SendKeyboard(u.ChatID, fmt.Sprintf("Arguments for %s:", sess.Task.Name), argsKeyboard(sess.Task, sess.Args))
	case callbackCancel:
		c.drop(u.ChatID)
	}
}

func (c *Controller) submitRun(chatID int64, sess *Session) {
	observer := func(r *task.TaskRun) {
		_, rc, errText := r.Terminal()
		c.out.SendText(chatID, fmt.Sprintf("Task %s completed: run_rc=%d, run_ex=%s", r.ID(), rc, errText))
	}
	run, err := c.runner.Run(sess.Task, sess.Args, []task.Observer{observer})
	if err != nil {
		c.out.SendText(chatID, fmt.Sprintf("Run refused: %v", err))
		return
	}
	c.out.SendText(chatID, fmt.Sprintf("Task %s started", run.ID()))
}
