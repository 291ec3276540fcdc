package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/task"
)

type fakeOutbound struct {
	texts     []string
	keyboards []string
	edits     int
}

func (f *fakeOutbound) SendText(chatID int64, text string)                { f.texts = append(f.texts, text) }
func (f *fakeOutbound) SendKeyboard(chatID int64, text string, rows [][]Button) { f.keyboards = append(f.keyboards, text) }
func (f *fakeOutbound) EditRemoveKeyboard(chatID int64, messageID int)    { f.edits++ }

type fakeRunner struct {
	tasks map[string]*catalog.Task
}

func newFakeRunner(tasks ...*catalog.Task) *fakeRunner {
	m := make(map[string]*catalog.Task, len(tasks))
	for _, t := range tasks {
		m[t.Name] = t
	}
	return &fakeRunner{tasks: m}
}

func (f *fakeRunner) GetTask(name string) (*catalog.Task, bool) { t, ok := f.tasks[name]; return t, ok }
func (f *fakeRunner) TaskList() []string {
	names := make([]string, 0, len(f.tasks))
	for n := range f.tasks {
		names = append(names, n)
	}
	return names
}
func (f *fakeRunner) Run(taskDef *catalog.Task, args map[string]any, observers []task.Observer) (*task.TaskRun, error) {
	mgr := task.NewManager([]*catalog.Task{taskDef})
	return mgr.Run(taskDef, args, observers)
}

func TestAllowlistRejectsUnknownUser(t *testing.T) {
	out := &fakeOutbound{}
	runner := newFakeRunner(&catalog.Task{Name: "hello"})
	ctrl := New(runner, out, []string{"1"})

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 2, Text: "/run hello"})

	assert.Empty(t, out.texts)
	assert.Empty(t, out.keyboards)
	assert.Nil(t, ctrl.sessionFor(1))
}

func TestRunHappyPathWithArgs(t *testing.T) {
	out := &fakeOutbound{}
	helloTask := &catalog.Task{
		Name:    "hello",
		Command: []string{"true"},
		Args:    []catalog.ArgSpec{{Name: "name", Type: catalog.ArgString, Default: "world"}},
	}
	runner := newFakeRunner(helloTask)
	ctrl := New(runner, out, []string{"1"})

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "/run hello"})
	sess := ctrl.sessionFor(1)
	require.NotNil(t, sess)
	assert.Equal(t, StateAskArgs, sess.State)
	assert.Equal(t, "world", sess.Args["name"])

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, IsCallback: true, CallbackData: callbackRun})
	sess = ctrl.sessionFor(1)
	require.NotNil(t, sess)
	assert.Equal(t, StateAskConfirm, sess.State)

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, IsCallback: true, CallbackData: callbackYes})
	assert.Nil(t, ctrl.sessionFor(1))
	assert.Contains(t, out.texts[len(out.texts)-1], "Task")
}

func TestRunNoArgsSkipsToConfirm(t *testing.T) {
	out := &fakeOutbound{}
	runner := newFakeRunner(&catalog.Task{Name: "noop", Command: []string{"true"}})
	ctrl := New(runner, out, []string{"1"})

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "/run noop"})
	sess := ctrl.sessionFor(1)
	require.NotNil(t, sess)
	assert.Equal(t, StateAskConfirm, sess.State)
}

func TestUnknownTaskNameRepromptsAskTask(t *testing.T) {
	out := &fakeOutbound{}
	runner := newFakeRunner(&catalog.Task{Name: "hello"})
	ctrl := New(runner, out, []string{"1"})

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "/run nonexistent"})
	sess := ctrl.sessionFor(1)
	require.NotNil(t, sess)
	assert.Equal(t, StateAskTask, sess.State)
	assert.Contains(t, out.keyboards[len(out.keyboards)-1], "Task name not found.")
}

func TestNoBackPreservesArgs(t *testing.T) {
	out := &fakeOutbound{}
	helloTask := &catalog.Task{
		Name: "hello",
		Args: []catalog.ArgSpec{{Name: "name", Type: catalog.ArgString, Default: "world"}},
	}
	runner := newFakeRunner(helloTask)
	ctrl := New(runner, out, []string{"1"})

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "/run hello"})
	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, IsCallback: true, CallbackData: callbackRun})
	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, IsCallback: true, CallbackData: callbackNo})
	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, IsCallback: true, CallbackData: callbackBack})

	sess := ctrl.sessionFor(1)
	require.NotNil(t, sess)
	assert.Equal(t, StateAskArgs, sess.State)
	assert.Equal(t, "world", sess.Args["name"])
}

func TestCancelDropsSessionFromAnyState(t *testing.T) {
	out := &fakeOutbound{}
	runner := newFakeRunner(&catalog.Task{Name: "hello"})
	ctrl := New(runner, out, []string{"1"})

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "/run hello"})
	require.NotNil(t, ctrl.sessionFor(1))

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "/cancel"})
	assert.Nil(t, ctrl.sessionFor(1))
}

func TestEditArgumentViaTextMessage(t *testing.T) {
	out := &fakeOutbound{}
	helloTask := &catalog.Task{
		Name: "hello",
		Args: []catalog.ArgSpec{{Name: "name", Type: catalog.ArgString, Default: "world"}},
	}
	runner := newFakeRunner(helloTask)
	ctrl := New(runner, out, []string{"1"})

	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "/run hello"})
	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, IsCallback: true, CallbackData: "name"})
	ctrl.HandleUpdate(Update{ChatID: 1, UserID: 1, Text: "alice"})

	sess := ctrl.sessionFor(1)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.Args["name"])
}
