// Package pattern decides whether a display name satisfies an include or
// exclude specification.
package pattern

import (
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is one of the accepted shapes:
//   - []string            literal names, membership test
//   - string              comma-separated literal names
//   - *regexp.Regexp      applied to the name
//   - Glob                doublestar glob applied to the name
//
// Any other value never matches.
type Pattern any

// Glob is a doublestar glob (e.g. "Tab*", "{Home,About}Page").
// A malformed glob never matches.
type Glob string

// Matches reports whether name satisfies p. It never fails: unsupported
// pattern shapes are a silent non-match.
func Matches(p Pattern, name string) bool {
	switch v := p.(type) {
	case []string:
		return slices.Contains(v, name)
	case string:
		return slices.Contains(strings.Split(v, ","), name)
	case *regexp.Regexp:
		if v == nil {
			return false
		}
		return v.MatchString(name)
	case Glob:
		ok, err := doublestar.Match(string(v), name)
		return err == nil && ok
	default:
		return false
	}
}

// Supported reports whether p has one of the accepted shapes.
// A nil *regexp.Regexp and a malformed Glob are reported as unsupported.
func Supported(p Pattern) bool {
	switch v := p.(type) {
	case []string, string:
		return true
	case *regexp.Regexp:
		return v != nil
	case Glob:
		return doublestar.ValidatePattern(string(v))
	default:
		return false
	}
}
