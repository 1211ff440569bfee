// Package util provides small string helpers shared by the host-facing packages.
package util

import (
	"fmt"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs unquotes every host argument in place and returns the slice.
func CleanArgs(args []string) []string {
	for i, v := range args {
		args[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(v)))
	}
	return args
}

// ParseToggle parses the on/off spellings the host and the REPL send.
func ParseToggle(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid toggle value %q", s)
}
