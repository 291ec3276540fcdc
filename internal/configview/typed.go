package configview

import (
	"fmt"

	"github.com/firestige/taskctl/internal/template"
)

// String returns the node's string value. ok is false if the node isn't
// a string (including evaluated-expression nodes that resolved to a
// non-string).
func (v *View) String() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Bool returns the node's boolean value.
func (v *View) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// Float returns the node's numeric value as a float64. JSON numbers
// decode to float64 via encoding/json; EvaluateExpr nodes may produce
// int64, so both are accepted.
func (v *View) Float() (float64, bool) {
	switch t := v.raw.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// GetString is a convenience wrapper combining Get and String.
func (v *View) GetString(f string) (string, bool) {
	child, ok := v.Get(f)
	if !ok {
		return "", false
	}
	return child.String()
}

// GetStringDefault returns GetString's value or def if absent/wrong type.
func (v *View) GetStringDefault(f, def string) string {
	if s, ok := v.GetString(f); ok {
		return s
	}
	return def
}

// GetBoolDefault returns the field's boolean value or def if absent.
func (v *View) GetBoolDefault(f string, def bool) bool {
	child, ok := v.Get(f)
	if !ok {
		return def
	}
	b, ok := child.Bool()
	if !ok {
		return def
	}
	return b
}

// GetStringSlice returns an array field's elements as strings, skipping
// any element whose (possibly substituted) value isn't a string.
func (v *View) GetStringSlice(f string) []string {
	child, ok := v.Get(f)
	if !ok {
		return nil
	}
	var out []string
	child.Each(func(_ int, elem *View) bool {
		if s, ok := elem.String(); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// Expand is the explicit "expand(view) -> string" operation from the
// design notes: render this node as a context-and-env substituted
// string, regardless of its stored substitution level.
func Expand(v *View, context map[string]any) (string, error) {
	s, ok := v.raw.(string)
	if !ok {
		return "", fmt.Errorf("configview: node is not a string, got %T", v.raw)
	}
	return template.Expand(s, context), nil
}
