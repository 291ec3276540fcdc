package configview

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainField(t *testing.T) {
	view, err := Parse([]byte(`{"name": "hello"}`), nil)
	require.NoError(t, err)

	child, ok := view.Get("name")
	require.True(t, ok)
	s, ok := child.String()
	require.True(t, ok)
	assert.Equal(t, "hello", s)
}

func TestGetSubstitutionLevel1(t *testing.T) {
	view, err := Parse([]byte(`{"[greeting]": "hello ${who}"}`), map[string]any{"who": "world"})
	require.NoError(t, err)

	child, ok := view.Get("greeting")
	require.True(t, ok)
	s, ok := child.String()
	require.True(t, ok)
	assert.Equal(t, "hello world", s)
}

func TestGetSubstitutionLevel2Eval(t *testing.T) {
	view, err := Parse([]byte(`{"[[sum]]": "${a} + ${b}"}`), map[string]any{"a": "1", "b": "2"})
	require.NoError(t, err)

	child, ok := view.Get("sum")
	require.True(t, ok)
	f, ok := child.Float()
	require.True(t, ok)
	assert.Equal(t, float64(3), f)
}

func TestGetMissingFieldIsExplicitAbsence(t *testing.T) {
	view, err := Parse([]byte(`{"name": "hello"}`), nil)
	require.NoError(t, err)

	_, ok := view.Get("nope")
	assert.False(t, ok)
}

func TestEachOverArray(t *testing.T) {
	view, err := Parse([]byte(`[1, 2, 3]`), nil)
	require.NoError(t, err)

	var seen []float64
	view.Each(func(i int, elem *View) bool {
		f, _ := elem.Float()
		seen = append(seen, f)
		return true
	})
	assert.Equal(t, []float64{1, 2, 3}, seen)
}

func TestEnvPlaceholderInSubstitutionLevel(t *testing.T) {
	require.NoError(t, os.Setenv("TASKCTL_CV_TEST", "envval"))
	defer os.Unsetenv("TASKCTL_CV_TEST")

	view, err := Parse([]byte(`{"[x]": "$[TASKCTL_CV_TEST]"}`), nil)
	require.NoError(t, err)

	child, ok := view.Get("x")
	require.True(t, ok)
	s, _ := child.String()
	assert.Equal(t, "envval", s)
}

func TestGetStringSliceSubstitutesEachElement(t *testing.T) {
	view, err := Parse([]byte(`{"[users]": ["${first}", "static", 7]}`), map[string]any{"first": "alice"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "static"}, view.GetStringSlice("users"))
}

func TestGetStringSliceMissingFieldIsNil(t *testing.T) {
	view, err := Parse([]byte(`{}`), nil)
	require.NoError(t, err)

	assert.Nil(t, view.GetStringSlice("users"))
}
