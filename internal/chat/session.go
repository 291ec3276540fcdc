package chat

import "github.com/firestige/taskctl/internal/catalog"

// State names the conversation's position in the FSM from spec.md §4.7.
type State string

const (
	StateAskTask    State = "ASK_TASK"
	StateAskArgs    State = "ASK_ARGS"
	StateAskConfirm State = "ASK_CONFIRM"
)

// Session is per-user ephemeral conversation state.
type Session struct {
	State      State
	Task       *catalog.Task
	Args       map[string]any
	PendingArg string
}

func newSession() *Session {
	return &Session{Args: make(map[string]any)}
}
