package filter

import "github.com/willibrandon/pgtail/internal/record"

// State is the full predicate vector applied to every record before it is
// admitted into the history buffer: a level set, the three regex lists, a
// field-equality map, and an optional time window.
type State struct {
	Levels     map[record.Level]bool // nil means no level filter
	Regex      RegexState
	Field      FieldFilterState
	TimeWindow TimeWindow
}

// ShouldShow is the single predicate the history buffer and source readers
// apply to every record: level passes AND time window contains AND
// (includes empty OR any include matches raw) AND no exclude matches raw
// AND all ands match raw AND all field equalities hold.
func (s *State) ShouldShow(rec record.LogRecord) bool {
	if !record.ShouldShow(rec.Level, s.Levels) {
		return false
	}
	if !s.TimeWindow.Matches(rec) {
		return false
	}
	if !s.Field.Matches(rec) {
		return false
	}
	if s.Regex.HasFilters() && !s.Regex.ShouldShow(rec.Raw) {
		return false
	}
	return true
}

// Clone returns a deep-enough copy suitable for snapshotting as a session
// anchor (the runtime's `clear` command restores this anchor).
func (s *State) Clone() State {
	clone := State{
		TimeWindow: s.TimeWindow,
	}
	if s.Levels != nil {
		clone.Levels = make(map[record.Level]bool, len(s.Levels))
		for k, v := range s.Levels {
			clone.Levels[k] = v
		}
	}
	clone.Regex.Includes = append([]RegexFilter(nil), s.Regex.Includes...)
	clone.Regex.Excludes = append([]RegexFilter(nil), s.Regex.Excludes...)
	clone.Regex.Ands = append([]RegexFilter(nil), s.Regex.Ands...)
	if s.Field.filters != nil {
		clone.Field.filters = make(map[string]string, len(s.Field.filters))
		for k, v := range s.Field.filters {
			clone.Field.filters[k] = v
		}
	}
	return clone
}
