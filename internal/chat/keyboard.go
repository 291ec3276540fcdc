package chat

import (
	"fmt"

	"github.com/firestige/taskctl/internal/catalog"
)

// Button is one inline-keyboard button: Label is shown to the user,
// Data is the callback payload echoed back on press.
type Button struct {
	Label string
	Data  string
}

const (
	callbackRun    = "__run__"
	callbackYes    = "__yes__"
	callbackNo     = "__no__"
	callbackBack   = "__back__"
	callbackCancel = "__cancel__"
)

func taskKeyboard(names []string) [][]Button {
	rows := make([][]Button, 0, len(names))
	for _, n := range names {
		rows = append(rows, []Button{{Label: n, Data: n}})
	}
	return rows
}

// argsKeyboard builds one row per declared argument, labeled with its
// current session value if set, plus a final "Run task" row — per
// spec.md §4.7.
func argsKeyboard(taskDef *catalog.Task, args map[string]any) [][]Button {
	var rows [][]Button
	for _, name := range taskDef.ArgNames() {
		label := name
		if v, ok := args[name]; ok {
			label = fmt.Sprintf("%s (%v)", name, v)
		}
		rows = append(rows, []Button{{Label: label, Data: name}})
	}
	rows = append(rows, []Button{{Label: "Run task", Data: callbackRun}})
	return rows
}

func confirmKeyboard() [][]Button {
	return [][]Button{{{Label: "Yes", Data: callbackYes}, {Label: "No", Data: callbackNo}}}
}

func reviseKeyboard() [][]Button {
	return [][]Button{
		{
			{Label: "Run", Data: callbackRun},
			{Label: "Back", Data: callbackBack},
			{Label: "Cancel", Data: callbackCancel},
		},
	}
}
