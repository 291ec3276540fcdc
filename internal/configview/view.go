// Package configview implements a typed accessor over a parsed JSON
// configuration tree, modeling the field-lookup and inline-substitution
// semantics the source expressed as dynamic __getattr__ resolution on a
// "Wrap" object. Here it is an explicit, typed View with Get/Expand
// operations instead of attribute-style magic, per spec.md's §9 guidance
// to avoid silent None propagation.
package configview

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/firestige/taskctl/internal/template"
)

// Level controls whether a string value is returned verbatim, with
// template substitution applied, or substituted and then evaluated as a
// constant expression.
type Level int

const (
	NoEval Level = iota
	EvaluateSubstitute
	EvaluateExpr
)

// View wraps a node of a parsed JSON document (object, array, or scalar)
// together with the substitution context used to resolve "[f]"/"[[f]]"
// fields. level is the substitution level the node was retrieved at;
// Index/Each apply it to each element in turn, so an array reached via
// "[arr]"/"[[arr]]" substitutes every string element the same way a
// scalar field would (spec.md §4.2: "iteration and index access yield
// the same substitution behavior on element retrieval").
type View struct {
	raw     any
	context map[string]any
	level   Level
}

// New builds a root View over data, an already-json.Unmarshal'd value
// (map[string]any, []any, or a scalar), using context for substitution.
func New(data any, context map[string]any) *View {
	return &View{raw: data, context: context}
}

// Parse unmarshals raw JSON bytes and returns the root View.
func Parse(data []byte, context map[string]any) (*View, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("configview: parse: %w", err)
	}
	return New(v, context), nil
}

// Raw returns the underlying decoded value for this node.
func (v *View) Raw() any { return v.raw }

// Len reports the number of entries for an object or array node, 0
// otherwise.
func (v *View) Len() int {
	switch t := v.raw.(type) {
	case map[string]any:
		return len(t)
	case []any:
		return len(t)
	}
	return 0
}

// Get looks up field f on an object node, honoring the lookup order:
// f, then "[f]" (level EvaluateSubstitute), then "[[f]]" (level
// EvaluateExpr), then "@f" (inline include). Returns ok=false if the
// node is not an object or none of the four forms is present — callers
// must check ok rather than relying on a zero-value View.
func (v *View) Get(f string) (*View, bool) {
	obj, ok := v.raw.(map[string]any)
	if !ok {
		return nil, false
	}
	if raw, present := obj[f]; present {
		return v.child(raw, NoEval), true
	}
	if raw, present := obj["["+f+"]"]; present {
		return v.child(raw, EvaluateSubstitute), true
	}
	if raw, present := obj["[["+f+"]]"]; present {
		return v.child(raw, EvaluateExpr), true
	}
	if raw, present := obj["@"+f]; present {
		include, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		return v.resolveInclude(include)
	}
	return nil, false
}

// Index looks up element i of an array node, substituting it at the
// same level the array itself was retrieved at.
func (v *View) Index(i int) (*View, bool) {
	arr, ok := v.raw.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return nil, false
	}
	return v.child(arr[i], v.level), true
}

// Each calls fn for every element of an array node, in order, stopping
// early if fn returns false. Elements are substituted at the array's
// own level, same as Index.
func (v *View) Each(fn func(i int, elem *View) bool) {
	arr, ok := v.raw.([]any)
	if !ok {
		return
	}
	for i, raw := range arr {
		if !fn(i, v.child(raw, v.level)) {
			return
		}
	}
}

// Keys returns the object node's field names, normalized (bracket forms
// stripped of their decoration), matching the source's to_dict behavior.
func (v *View) Keys() []string {
	obj, ok := v.raw.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, normalizeKey(k))
	}
	return keys
}

func normalizeKey(k string) string {
	switch {
	case strings.HasPrefix(k, "[[") && strings.HasSuffix(k, "]]"):
		return k[2 : len(k)-2]
	case strings.HasPrefix(k, "[") && strings.HasSuffix(k, "]"):
		return k[1 : len(k)-1]
	case strings.HasPrefix(k, "@"):
		return k[1:]
	default:
		return k
	}
}

func (v *View) child(raw any, level Level) *View {
	c := &View{raw: raw, context: v.context, level: level}
	if level == NoEval {
		return c
	}
	s, ok := raw.(string)
	if !ok {
		return c
	}
	expanded := template.Expand(s, v.context)
	if level == NoEval || level == EvaluateSubstitute {
		c.raw = expanded
		return c
	}
	result, err := template.Eval(expanded)
	if err != nil {
		// Fall back to the substituted string; evaluation failures are
		// not fatal to config loading.
		c.raw = expanded
		return c
	}
	c.raw = result
	return c
}

func (v *View) resolveInclude(include map[string]any) (*View, bool) {
	url, _ := include["url"].(string)
	root, _ := include["root"].(string)
	if url == "" {
		return nil, false
	}
	data, err := fetchInclude(url)
	if err != nil {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, false
	}
	rootView := New(decoded, v.context)
	if root == "" {
		return rootView, true
	}
	cur := rootView
	for _, segment := range strings.Split(root, ".") {
		next, ok := cur.Get(segment)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func fetchInclude(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("configview: fetch include %s: %w", url, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
