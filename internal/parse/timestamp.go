package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// tzOffsets maps common PostgreSQL log_timezone abbreviations to their
// offset from UTC, in hours. Unknown abbreviations are assumed to be UTC
// per the project's documented open question around lossy timezone names.
var tzOffsets = map[string]int{
	"UTC": 0, "GMT": 0, "Z": 0,
	"EST": -5, "EDT": -4,
	"CST": -6, "CDT": -5,
	"MST": -7, "MDT": -6,
	"PST": -8, "PDT": -7,
	"AKST": -9, "AKDT": -8,
	"HST": -10,
	"WET": 0, "WEST": 1,
	"CET": 1, "CEST": 2,
	"EET": 2, "EEST": 3,
	"JST": 9, "KST": 9, "IST": 5,
	"AEST": 10, "AEDT": 11,
	"NZST": 12, "NZDT": 13,
}

var isoTRe = regexp.MustCompile(`\dT\d`)
var isoOffsetRe = regexp.MustCompile(`([+-])(\d{2}):?(\d{2})?$`)

// ParseTimestamp normalizes a PostgreSQL log timestamp string to UTC.
// Handles:
//   - "2024-01-15 10:30:45.123 PST" (named timezone abbreviation)
//   - "2024-01-15 10:30:45.123+00" / "+00:00" (ISO offset)
//   - "2024-01-15T10:30:45.123Z" (ISO with Z)
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	var offset *time.Duration
	isISO := isoTRe.MatchString(s)

	switch {
	case isISO && strings.HasSuffix(s, "Z"):
		s = strings.TrimSuffix(s, "Z")
		d := time.Duration(0)
		offset = &d
	case isISO || isoOffsetRe.MatchString(s):
		if m := isoOffsetRe.FindStringSubmatchIndex(s); m != nil {
			sign := 1
			if s[m[2]:m[3]] == "-" {
				sign = -1
			}
			hours, _ := strconv.Atoi(s[m[4]:m[5]])
			minutes := 0
			if m[6] != -1 {
				minutes, _ = strconv.Atoi(s[m[6]:m[7]])
			}
			d := time.Duration(sign) * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)
			offset = &d
			s = strings.TrimSpace(s[:m[0]])
		}
	default:
		parts := strings.Fields(s)
		if len(parts) >= 2 {
			last := parts[len(parts)-1]
			if len(last) <= 5 && isAlpha(last) {
				if hrs, ok := tzOffsets[strings.ToUpper(last)]; ok {
					d := time.Duration(hrs) * time.Hour
					offset = &d
				} else {
					d := time.Duration(0)
					offset = &d
				}
				s = strings.TrimSpace(strings.Join(parts[:len(parts)-1], " "))
			}
		}
	}

	s = strings.Replace(s, "T", " ", 1)

	var layout string
	if strings.Contains(s, ".") {
		layout = "2006-01-02 15:04:05.000"
	} else {
		layout = "2006-01-02 15:04:05"
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}

	if offset != nil {
		loc := time.FixedZone("", int(offset.Seconds()))
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
		return t.UTC(), true
	}

	// No timezone information: assume the local timezone and convert.
	local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
	return local.UTC(), true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return len(s) > 0
}
