package runner

import (
	"fmt"
	"strings"
)

// Matcher decides whether an engine message satisfies a script's expected
// failure text. Engines word their messages differently, so the policy is
// pluggable.
type Matcher func(expected, actual string) bool

func Exact(expected, actual string) bool { return expected == actual }

func Substring(expected, actual string) bool { return strings.Contains(actual, expected) }

func Prefix(expected, actual string) bool { return strings.HasPrefix(actual, expected) }

// MatcherFor maps a configuration name to its matcher.
func MatcherFor(name string) (Matcher, error) {
	switch name {
	case "", "substring":
		return Substring, nil
	case "exact":
		return Exact, nil
	case "prefix":
		return Prefix, nil
	}
	return nil, fmt.Errorf("unknown matcher %q", name)
}
