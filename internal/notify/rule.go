// Package notify implements the notification rule engine: rule matching,
// rate limiting, and quiet hours, driving an external Notifier
// collaborator.
package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/willibrandon/pgtail/internal/record"
)

// RuleKind discriminates the four notification rule variants.
type RuleKind int

const (
	RuleLevel RuleKind = iota
	RulePattern
	RuleErrorRate
	RuleSlowQuery
)

// Rule is a tagged notification rule. Level and SlowQuery/ErrorRate rules
// are singletons within a Config (adding a new one merges or replaces the
// existing one); Pattern rules are additive.
type Rule struct {
	Kind RuleKind

	Levels map[record.Level]bool // RuleLevel

	Pattern       *regexp.Regexp // RulePattern
	PatternSource string
	CaseSensitive bool

	ThresholdPerMinute int // RuleErrorRate
	ThresholdMS        int // RuleSlowQuery
}

// LevelRule builds a Level rule matching any of levels.
func LevelRule(levels map[record.Level]bool) Rule {
	return Rule{Kind: RuleLevel, Levels: levels}
}

// PatternRule builds a Pattern rule from an already-compiled regex.
func PatternRule(re *regexp.Regexp, source string, caseSensitive bool) Rule {
	return Rule{Kind: RulePattern, Pattern: re, PatternSource: source, CaseSensitive: caseSensitive}
}

// ErrorRateRule builds an ErrorRate rule.
func ErrorRateRule(perMinute int) Rule {
	return Rule{Kind: RuleErrorRate, ThresholdPerMinute: perMinute}
}

// SlowQueryRule builds a SlowQuery rule.
func SlowQueryRule(thresholdMS int) Rule {
	return Rule{Kind: RuleSlowQuery, ThresholdMS: thresholdMS}
}

// CompilePatternToken parses a `/regex/` or `/regex/i` config token (the
// trailing `i` flag requests case-insensitive matching, mirroring the
// notifications.patterns YAML format) into a Pattern rule.
func CompilePatternToken(token string) (Rule, error) {
	if len(token) < 2 || token[0] != '/' {
		return Rule{}, fmt.Errorf("pattern %q must be of the form /regex/ or /regex/i", token)
	}

	body := token[1:]
	caseSensitive := true
	if idx := strings.LastIndexByte(body, '/'); idx >= 0 {
		flags := body[idx+1:]
		body = body[:idx]
		if flags == "i" {
			caseSensitive = false
		} else if flags != "" {
			return Rule{}, fmt.Errorf("pattern %q has unknown flag %q", token, flags)
		}
	} else {
		return Rule{}, fmt.Errorf("pattern %q is missing a closing /", token)
	}

	expr := body
	if !caseSensitive {
		expr = "(?i)" + body
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("pattern %q: %w", token, err)
	}

	return PatternRule(re, body, caseSensitive), nil
}

// Matches reports whether rec triggers this rule. ErrorRate and SlowQuery
// matching against thresholds is evaluated by the Manager, which has
// access to the rolling error-rate window and duration extraction; this
// method only handles the record-local predicates (Level, Pattern).
func (r Rule) Matches(rec record.LogRecord) bool {
	switch r.Kind {
	case RuleLevel:
		return record.ShouldShow(rec.Level, r.Levels)
	case RulePattern:
		return r.Pattern != nil && r.Pattern.MatchString(rec.Raw)
	default:
		return false
	}
}

// Config holds the rule set plus the global enable flag and quiet hours
// window.
type Config struct {
	Enabled     bool
	LevelRule   *Rule
	PatternRule []Rule
	ErrorRate   *Rule
	SlowQuery   *Rule
	QuietHours  *QuietHours
}

// AddRule inserts r into the config per its merge semantics: a Level rule
// merges its levels into any existing Level rule rather than replacing it;
// SlowQuery/ErrorRate replace any existing singleton; Pattern rules are
// appended.
func (c *Config) AddRule(r Rule) {
	switch r.Kind {
	case RuleLevel:
		if c.LevelRule != nil {
			if c.LevelRule.Levels == nil {
				c.LevelRule.Levels = make(map[record.Level]bool, len(r.Levels))
			}
			for lvl, ok := range r.Levels {
				if ok {
					c.LevelRule.Levels[lvl] = true
				}
			}
			return
		}
		c.LevelRule = &r
	case RulePattern:
		c.PatternRule = append(c.PatternRule, r)
	case RuleErrorRate:
		c.ErrorRate = &r
	case RuleSlowQuery:
		c.SlowQuery = &r
	}
}
