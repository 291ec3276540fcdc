package template

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandContextAndEnv(t *testing.T) {
	require.NoError(t, os.Setenv("TASKCTL_TEST_H", "home"))
	defer os.Unsetenv("TASKCTL_TEST_H")

	out := ExpandAll([]string{"${a}", "$[TASKCTL_TEST_H]"}, map[string]any{"a": "x"})
	assert.Equal(t, []string{"x", "home"}, out)
}

func TestExpandUnknownKeysBecomeNoneSentinel(t *testing.T) {
	assert.Equal(t, "None", Expand("${missing}", nil))
	assert.Equal(t, "None", Expand("$[TASKCTL_TEST_MISSING_VAR]", nil))
}

func TestExpandStringifiesTypedValues(t *testing.T) {
	ctx := map[string]any{"n": int64(5), "f": 1.5, "b": true}
	assert.Equal(t, "5", Expand("${n}", ctx))
	assert.Equal(t, "1.5", Expand("${f}", ctx))
	assert.Equal(t, "True", Expand("${b}", ctx))
}

func TestEvalArithmetic(t *testing.T) {
	v, err := Eval("1 + 2 * 3")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestEvalBooleanAndComparison(t *testing.T) {
	v, err := Eval("1 < 2 and not false")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvalRejectsIdentifiers(t *testing.T) {
	_, err := Eval("x + 1")
	assert.Error(t, err)
}

func TestEvalParensAndStrings(t *testing.T) {
	v, err := Eval(`(1 + 1) == 2 and 'a' == 'a'`)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
