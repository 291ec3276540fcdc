package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "tasklist": [
    {
      "name": "echo",
      "type": "subprocess",
      "description": "say hello",
      "singleton": false,
      "conflict": [],
      "args": {
        "who": {"type": "str", "description": "who to greet", "default": "world"}
      },
      "command": ["echo", "hello ${who}"],
      "schedule": [[1, "seconds"]]
    },
    {
      "name": "sleep10",
      "singleton": true,
      "command": ["sleep", "10"]
    }
  ]
}`

func TestParseBuildsTaskRecords(t *testing.T) {
	tasks, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	byName := map[string]*Task{}
	for _, task := range tasks {
		byName[task.Name] = task
	}

	echo := byName["echo"]
	require.NotNil(t, echo)
	assert.Equal(t, "subprocess", echo.Type)
	assert.Equal(t, []string{"echo", "hello ${who}"}, echo.Command)
	assert.Equal(t, map[string]any{"who": "world"}, echo.DefaultArgs())
	require.Len(t, echo.Schedule, 1)
	assert.Equal(t, UnitSeconds, echo.Schedule[0].Unit)

	sleep := byName["sleep10"]
	require.NotNil(t, sleep)
	assert.True(t, sleep.Singleton)
	assert.Equal(t, "subprocess", sleep.Type) // defaulted
}

func TestParseIsDeterministic(t *testing.T) {
	a, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseDropsUnparseableDefaultButKeepsArg(t *testing.T) {
	doc := `{"tasklist": [{"name": "t", "args": {"n": {"type": "int", "default": "not-an-int"}}, "command": ["true"]}]}`
	tasks, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].Args, 1)
	assert.Nil(t, tasks[0].Args[0].Default)
	assert.Equal(t, "n", tasks[0].Args[0].Name)
}

func TestParseDropsInvalidScheduleUnit(t *testing.T) {
	doc := `{"tasklist": [{"name": "t", "command": ["true"], "schedule": [[1, "fortnights"]]}]}`
	tasks, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].Schedule)
}

func TestParseIntDefaultCoercedFromJSONFloat(t *testing.T) {
	doc := `{"tasklist": [{"name": "t", "args": {"n": {"type": "int", "default": 5}}, "command": ["true"]}]}`
	tasks, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, int64(5), tasks[0].Args[0].Default)
}

const sampleYAMLCatalog = `
tasklist:
  - name: backup
    command: ["tar", "-czf", "backup.tgz", "/data"]
    args:
      retries:
        type: int
        default: 3
    schedule:
      - [1, hours]
`

func TestParseAutoYAMLCoercesIntNumerics(t *testing.T) {
	tasks, err := ParseAuto([]byte(sampleYAMLCatalog), "backup.yaml")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	require.Len(t, task.Args, 1)
	assert.Equal(t, int64(3), task.Args[0].Default)

	require.Len(t, task.Schedule, 1)
	assert.Equal(t, 1, task.Schedule[0].Interval)
	assert.Equal(t, UnitHours, task.Schedule[0].Unit)
}

func TestHasConflictWith(t *testing.T) {
	task := &Task{Name: "b", Conflict: []string{"a", "c"}}
	assert.True(t, task.HasConflictWith("a"))
	assert.False(t, task.HasConflictWith("z"))
}
