// Package pattern selects repository-relative paths by glob.
//
// Patterns use doublestar syntax: `*` matches within one path segment,
// `**` matches across segments. Paths are always matched with forward
// slashes, regardless of the host separator.
package pattern

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher selects candidate paths with one watch glob and an ordered list
// of ignore globs. Construction validates every pattern, so matching never
// fails afterwards.
type Matcher struct {
	watch  string
	ignore []string
}

// NewMatcher validates the patterns and builds a Matcher. Pattern errors
// belong to the caller's configuration surface and are reported here, not
// during matching.
func NewMatcher(watch string, ignore []string) (*Matcher, error) {
	if err := Validate(watch); err != nil {
		return nil, err
	}
	for _, glob := range ignore {
		if err := Validate(glob); err != nil {
			return nil, err
		}
	}
	return &Matcher{watch: watch, ignore: ignore}, nil
}

// Validate reports whether the glob pattern is well formed and non-empty.
func Validate(glob string) error {
	if glob == "" {
		return errors.New("glob pattern cannot be empty")
	}
	if !doublestar.ValidatePattern(glob) {
		return fmt.Errorf("invalid glob pattern %q", glob)
	}
	return nil
}

// Matches reports whether the repository-relative path is selected: it must
// match the watch glob and none of the ignore globs. An invalid path never
// matches.
func (m *Matcher) Matches(relPath string) bool {
	matched, err := doublestar.Match(m.watch, relPath)
	if err != nil || !matched {
		return false
	}
	for _, glob := range m.ignore {
		if skip, err := doublestar.Match(glob, relPath); err == nil && skip {
			return false
		}
	}
	return true
}

// Watch returns the watch glob the matcher was built with.
func (m *Matcher) Watch() string {
	return m.watch
}
