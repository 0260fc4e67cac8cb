// Package filter implements the regex/field/time/level predicate pipeline
// applied to every LogRecord before it reaches the history buffer.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// RegexFilter is one compiled pattern plus its original source text, as
// typed (used for status display).
type RegexFilter struct {
	Pattern       *regexp.Regexp
	Source        string
	CaseSensitive bool
}

// RegexState holds the three disjoint regex lists: includes (OR-combined),
// excludes (any match hides), ands (all must match).
type RegexState struct {
	Includes []RegexFilter
	Excludes []RegexFilter
	Ands     []RegexFilter
}

// HasFilters reports whether any regex predicate is active.
func (s *RegexState) HasFilters() bool {
	return len(s.Includes) > 0 || len(s.Excludes) > 0 || len(s.Ands) > 0
}

// ShouldShow applies the includes-OR / excludes-none / ands-all rule to a
// raw line.
func (s *RegexState) ShouldShow(raw string) bool {
	if len(s.Includes) > 0 {
		matched := false
		for _, f := range s.Includes {
			if f.Pattern.MatchString(raw) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, f := range s.Excludes {
		if f.Pattern.MatchString(raw) {
			return false
		}
	}
	for _, f := range s.Ands {
		if !f.Pattern.MatchString(raw) {
			return false
		}
	}
	return true
}

// compileToken parses "/pattern/" (case-insensitive) or "/pattern/c"
// (case-sensitive) and compiles it.
func compileToken(token string) (RegexFilter, error) {
	body := token
	caseSensitive := false

	if strings.HasPrefix(token, "/") {
		rest := token[1:]
		if idx := strings.LastIndex(rest, "/"); idx >= 0 {
			body = rest[:idx]
			flags := rest[idx+1:]
			caseSensitive = strings.Contains(flags, "c")
		} else {
			body = rest
		}
	}

	pattern := body
	if !caseSensitive {
		pattern = "(?i)" + body
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return RegexFilter{}, fmt.Errorf("invalid regex %q: %w", body, err)
	}
	return RegexFilter{Pattern: re, Source: body, CaseSensitive: caseSensitive}, nil
}

// ApplyToken parses one user-entered filter token and mutates the state.
// A leading '+' selects include (additive), '-' selects exclude (additive),
// '&' selects and (additive). A bare token replaces the include list.
func (s *RegexState) ApplyToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	switch token[0] {
	case '+':
		f, err := compileToken(token[1:])
		if err != nil {
			return err
		}
		s.Includes = append(s.Includes, f)
	case '-':
		f, err := compileToken(token[1:])
		if err != nil {
			return err
		}
		s.Excludes = append(s.Excludes, f)
	case '&':
		f, err := compileToken(token[1:])
		if err != nil {
			return err
		}
		s.Ands = append(s.Ands, f)
	default:
		f, err := compileToken(token)
		if err != nil {
			return err
		}
		s.Includes = []RegexFilter{f}
	}
	return nil
}

// Clear removes every regex predicate.
func (s *RegexState) Clear() {
	s.Includes = nil
	s.Excludes = nil
	s.Ands = nil
}

// FindSpans returns the byte ranges in raw matched by pattern, used by both
// filtering (highlighting includes) and the highlighter chain.
func FindSpans(re *regexp.Regexp, raw string) [][2]int {
	idx := re.FindAllStringIndex(raw, -1)
	if idx == nil {
		return nil
	}
	spans := make([][2]int, len(idx))
	for i, pair := range idx {
		spans[i] = [2]int{pair[0], pair[1]}
	}
	return spans
}
