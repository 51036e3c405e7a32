// Package env handles the extra environment given to the stage processes.
package env

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseSpecs parses `KEY=VALUE` specs. A bare `KEY` inherits the value from
// the current environment and fails if it is not set.
func ParseSpecs(specs []string) (map[string]string, error) {
	env := make(map[string]string, len(specs))

	for _, spec := range specs {
		if spec == "" {
			return nil, fmt.Errorf("environment variable spec cannot be empty")
		}

		key, value, hasValue := strings.Cut(spec, "=")
		if !envKeyRegexp.MatchString(key) {
			return nil, fmt.Errorf("invalid environment variable key %q", key)
		}

		if !hasValue {
			v, ok := os.LookupEnv(key)
			if !ok {
				return nil, fmt.Errorf("environment variable %q is not set", key)
			}
			value = v
		}

		env[key] = value
	}

	return env, nil
}

// MergeMaps returns a new map with override values on top of base.
func MergeMaps(base map[string]string, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}

	return merged
}

// Environ appends the extra variables to a `KEY=VALUE` list (as returned by
// os.Environ) in a stable order. Later entries win when a process reads them.
func Environ(base []string, extra map[string]string) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}

	return out
}
