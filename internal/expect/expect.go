// Package expect applies expected-response patterns to captured command
// output.
//
// A pattern is a regular expression searched (not full-matched) against the
// text a device command produced. The result is either the whole matched
// substring, a set of named capture groups, or a no-match failure carrying
// enough context to diagnose from logs alone.
package expect

import (
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for pattern evaluation.
var (
	// ErrNoMatch indicates the expected pattern was not found in the text.
	ErrNoMatch = errors.New("expect: no match")

	// ErrBadPattern indicates the expected pattern is not a valid regular
	// expression.
	ErrBadPattern = errors.New("expect: bad pattern")
)

// Result holds a successful pattern search.
type Result struct {
	// Match is the entire matched substring (group 0).
	Match string

	// Groups maps named capture groups to their matched values. Groups is
	// nil when the pattern declares no named groups.
	Groups map[string]string
}

// Search runs pattern over text and returns the first match.
//
// An empty pattern always matches at position 0 with an empty Match; this
// disables match-failure detection while still letting the command run.
// A pattern that is present but not found yields ErrNoMatch.
func Search(pattern, text string) (*Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadPattern, pattern, err)
	}

	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, pattern)
	}

	result := &Result{Match: match[0]}
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(match) {
			continue
		}
		if result.Groups == nil {
			result.Groups = make(map[string]string)
		}
		result.Groups[name] = match[i]
	}

	return result, nil
}
