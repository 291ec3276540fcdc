package template

import "fmt"

// stringifyFallback handles the types not given a specific format by
// stringify in template.go (structs, slices, maps reaching the template
// engine as context values).
func stringifyFallback(v any) string {
	return fmt.Sprint(v)
}
