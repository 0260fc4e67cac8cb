// Package record defines the canonical parsed log record type shared by
// every parser, filter, and aggregator in pgtail.
package record

import "strings"

// Level is the total-ordered PostgreSQL log severity. Lower values are more
// severe, matching the ordering PostgreSQL itself uses in log_min_messages.
type Level int

const (
	Panic Level = iota
	Fatal
	Error
	Warning
	Notice
	Log
	Info
	Debug1
	Debug2
	Debug3
	Debug4
	Debug5
)

var levelNames = map[Level]string{
	Panic:   "PANIC",
	Fatal:   "FATAL",
	Error:   "ERROR",
	Warning: "WARNING",
	Notice:  "NOTICE",
	Log:     "LOG",
	Info:    "INFO",
	Debug1:  "DEBUG1",
	Debug2:  "DEBUG2",
	Debug3:  "DEBUG3",
	Debug4:  "DEBUG4",
	Debug5:  "DEBUG5",
}

// AllLevels lists every level from most to least severe.
var AllLevels = []Level{Panic, Fatal, Error, Warning, Notice, Log, Info, Debug1, Debug2, Debug3, Debug4, Debug5}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "LOG"
}

// levelAliases maps recognized spellings (case folded to upper) to a Level.
var levelAliases = map[string]Level{
	"PANIC": Panic, "PAN": Panic, "P": Panic,
	"FATAL": Fatal, "FAT": Fatal, "F": Fatal,
	"ERROR": Error, "ERR": Error, "E": Error,
	"WARNING": Warning, "WARN": Warning, "W": Warning,
	"NOTICE": Notice, "NOT": Notice, "NTC": Notice, "N": Notice,
	"LOG": Log, "L": Log,
	"INFO": Info, "INF": Info, "I": Info,
	"DEBUG1": Debug1, "DEBUG": Debug1, "DBG": Debug1, "D": Debug1,
	"DEBUG2": Debug2,
	"DEBUG3": Debug3,
	"DEBUG4": Debug4,
	"DEBUG5": Debug5,
}

// ParseLevelName resolves a single level token (exact name or abbreviation)
// case-insensitively. Returns false if the name is not recognized.
func ParseLevelName(name string) (Level, bool) {
	l, ok := levelAliases[strings.ToUpper(strings.TrimSpace(name))]
	return l, ok
}

// AtOrAbove returns the set of levels at least as severe as l (l and below
// in numeric value, i.e. l and more severe).
func (l Level) AtOrAbove() map[Level]bool {
	out := make(map[Level]bool, len(AllLevels))
	for _, lv := range AllLevels {
		if lv <= l {
			out[lv] = true
		}
	}
	return out
}

// AtOrBelow returns the set of levels at least as lenient as l (l and
// everything less severe).
func (l Level) AtOrBelow() map[Level]bool {
	out := make(map[Level]bool, len(AllLevels))
	for _, lv := range AllLevels {
		if lv >= l {
			out[lv] = true
		}
	}
	return out
}

// ParseLevels parses a comma/space-separated level specification such as
// "WARNING+", "err,fatal", or "ALL". Returns the resolved set (nil means no
// filter / ALL) and any tokens that were not recognized.
func ParseLevels(spec string) (set map[Level]bool, invalid []string) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "ALL") {
		return nil, nil
	}

	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' '
	})

	set = make(map[Level]bool)
	for _, tok := range fields {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		switch {
		case strings.HasSuffix(tok, "+"):
			name := strings.TrimSuffix(tok, "+")
			lvl, ok := ParseLevelName(name)
			if !ok {
				invalid = append(invalid, tok)
				continue
			}
			for lv := range lvl.AtOrAbove() {
				set[lv] = true
			}
		case strings.HasSuffix(tok, "-"):
			name := strings.TrimSuffix(tok, "-")
			lvl, ok := ParseLevelName(name)
			if !ok {
				invalid = append(invalid, tok)
				continue
			}
			for lv := range lvl.AtOrBelow() {
				set[lv] = true
			}
		default:
			lvl, ok := ParseLevelName(tok)
			if !ok {
				invalid = append(invalid, tok)
				continue
			}
			set[lvl] = true
		}
	}

	if len(set) == 0 {
		set = nil
	}
	return set, invalid
}

// ShouldShow reports whether l passes the given level set. A nil set means
// no filter is active (everything passes).
func ShouldShow(l Level, set map[Level]bool) bool {
	if set == nil {
		return true
	}
	return set[l]
}
