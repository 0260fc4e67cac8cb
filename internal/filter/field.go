package filter

import (
	"fmt"
	"strings"

	"github.com/willibrandon/pgtail/internal/record"
)

// fieldAliases maps user-facing field tokens to the canonical field name
// understood by record.LogRecord.Field.
var fieldAliases = map[string]string{
	"app": "application", "application": "application",
	"db": "database", "database": "database",
	"user": "user",
	"pid":  "pid",
	"backend": "backend",
	"host": "host", "ip": "host", "client": "host", "connection_from": "host",
}

// ResolveFieldName maps a user-entered alias to the canonical field name.
func ResolveFieldName(alias string) (string, bool) {
	name, ok := fieldAliases[strings.ToLower(strings.TrimSpace(alias))]
	return name, ok
}

// AvailableFieldNames lists the aliases accepted by field=value syntax.
func AvailableFieldNames() []string {
	names := make([]string, 0, len(fieldAliases))
	for k := range fieldAliases {
		names = append(names, k)
	}
	return names
}

// FieldFilterState holds the active field=value equality constraints,
// ANDed together. Comparisons are case-insensitive.
type FieldFilterState struct {
	filters map[string]string // canonical field name -> expected value
}

// Add parses "field=value" and adds (or replaces) the constraint for that
// field.
func (s *FieldFilterState) Add(token string) error {
	idx := strings.Index(token, "=")
	if idx < 0 {
		return fmt.Errorf("invalid field filter %q: expected field=value", token)
	}
	alias := token[:idx]
	value := token[idx+1:]

	name, ok := ResolveFieldName(alias)
	if !ok {
		return fmt.Errorf("unknown field %q", alias)
	}

	if s.filters == nil {
		s.filters = make(map[string]string)
	}
	s.filters[name] = strings.ToLower(strings.TrimSpace(value))
	return nil
}

// Remove clears the constraint on the named field.
func (s *FieldFilterState) Remove(alias string) {
	name, ok := ResolveFieldName(alias)
	if !ok || s.filters == nil {
		return
	}
	delete(s.filters, name)
}

// Clear removes every field constraint.
func (s *FieldFilterState) Clear() {
	s.filters = nil
}

// IsActive reports whether any field constraint is set.
func (s *FieldFilterState) IsActive() bool {
	return len(s.filters) > 0
}

// ActiveFilters returns a copy of the canonical-name -> value map.
func (s *FieldFilterState) ActiveFilters() map[string]string {
	out := make(map[string]string, len(s.filters))
	for k, v := range s.filters {
		out[k] = v
	}
	return out
}

// Matches reports whether rec satisfies every active field constraint.
// Field filters only meaningfully apply to CSV/JSON records; TEXT records
// never carry structured fields so they fail any active field filter.
func (s *FieldFilterState) Matches(rec record.LogRecord) bool {
	if !s.IsActive() {
		return true
	}
	for name, want := range s.filters {
		got, ok := rec.Field(name)
		if !ok || !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}
