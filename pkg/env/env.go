// Package env reads process environment variables with a default
// applied when a variable is unset or blank.
package env

import "os"

// Get returns the value of key, or fallback when the variable is
// missing or empty. Empty counts as missing so that `KEY=` in a unit
// file does not silently override the default.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}
