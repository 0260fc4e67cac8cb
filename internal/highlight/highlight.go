// Package highlight implements the cached highlighter chain that annotates
// rendered log lines with (span, style) runs for the terminal renderer.
package highlight

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/willibrandon/pgtail/internal/alerts"
)

// Span is one styled byte range within a rendered line.
type Span struct {
	Start int
	End   int
	Style lipgloss.Style
}

// DurationThresholds gates the query-duration highlighter. Must satisfy
// 0 < Warn < Slow < Critical.
type DurationThresholds struct {
	WarnMS     int
	SlowMS     int
	CriticalMS int
}

// Valid reports whether the thresholds are correctly ordered.
func (d DurationThresholds) Valid() bool {
	return d.WarnMS > 0 && d.WarnMS < d.SlowMS && d.SlowMS < d.CriticalMS
}

// Highlighter produces spans for one line. Priority controls evaluation
// and later-wins overlap resolution order (higher priority applied last).
type Highlighter struct {
	Name     string
	Priority int
	find     func(line string) []Span
}

var (
	timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(\.\d+)?`)
	numberRe    = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	stringRe    = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)
	sqlstateRe  = regexp.MustCompile(`\b[0-9A-Z]{5}\b`)
	durationRe  = regexp.MustCompile(`duration:\s*(\d+(?:\.\d+)?)\s*(ms|s)\b`)
)

var (
	styleTimestamp = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleNumber    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleString    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	styleSQLState  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	styleKeyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	styleWarn      = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	styleSlow      = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleCritical  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func regexHighlighter(name string, priority int, re *regexp.Regexp, style lipgloss.Style) Highlighter {
	return Highlighter{
		Name:     name,
		Priority: priority,
		find: func(line string) []Span {
			idx := re.FindAllStringIndex(line, -1)
			spans := make([]Span, 0, len(idx))
			for _, p := range idx {
				spans = append(spans, Span{Start: p[0], End: p[1], Style: style})
			}
			return spans
		},
	}
}

func keywordHighlighter() Highlighter {
	lexer := lexers.Get("postgresql")
	return Highlighter{
		Name:     "keywords",
		Priority: 10,
		find: func(line string) []Span {
			if lexer == nil {
				return nil
			}
			it, err := lexer.Tokenise(nil, line)
			if err != nil {
				return nil
			}
			var spans []Span
			offset := 0
			for _, tok := range it.Tokens() {
				length := len(tok.Value)
				if tok.Type == chroma.Keyword || tok.Type == chroma.KeywordReserved {
					spans = append(spans, Span{Start: offset, End: offset + length, Style: styleKeyword})
				}
				offset += length
			}
			return spans
		},
	}
}

// classifyDuration maps a duration in ms to an alert tier using the
// alerts package's >= operator, so a duration equal to a threshold
// already counts as reaching that tier.
func classifyDuration(ms float64, thresholds DurationThresholds) alerts.AlertState {
	op := alerts.OpGreaterOrEqual
	switch {
	case op.Compare(ms, float64(thresholds.CriticalMS)):
		return alerts.StateCritical
	case op.Compare(ms, float64(thresholds.SlowMS)):
		return alerts.StateWarning
	default:
		return alerts.StateNormal
	}
}

func durationHighlighter(thresholds DurationThresholds) Highlighter {
	return Highlighter{
		Name:     "duration",
		Priority: 50,
		find: func(line string) []Span {
			m := durationRe.FindStringSubmatchIndex(line)
			if m == nil {
				return nil
			}
			valueStr := line[m[2]:m[3]]
			unit := line[m[4]:m[5]]
			ms := parseDurationMS(valueStr, unit)
			if ms < float64(thresholds.WarnMS) {
				return nil
			}

			style := styleWarn
			switch classifyDuration(ms, thresholds) {
			case alerts.StateCritical:
				style = styleCritical
			case alerts.StateWarning:
				style = styleSlow
			}
			return []Span{{Start: m[0], End: m[1], Style: style}}
		},
	}
}

func parseDurationMS(value, unit string) float64 {
	f, _ := strconv.ParseFloat(value, 64)
	if unit == "s" {
		f *= 1000
	}
	return f
}

// Chain is the ordered, cached set of highlighters applied to each line.
// It is rebuilt whenever configuration changes (enabled set or thresholds).
type Chain struct {
	highlighters []Highlighter
	custom       []Highlighter
	thresholds   DurationThresholds
	enabled      map[string]bool
}

// NewChain builds the default built-in chain: SQL keywords, timestamps,
// numbers, strings, SQLSTATE codes, and duration coloring.
func NewChain(thresholds DurationThresholds, enabled map[string]bool) *Chain {
	c := &Chain{thresholds: thresholds, enabled: enabled}
	c.rebuild()
	return c
}

func (c *Chain) rebuild() {
	c.highlighters = []Highlighter{
		regexHighlighter("timestamps", 5, timestampRe, styleTimestamp),
		keywordHighlighter(),
		regexHighlighter("numbers", 15, numberRe, styleNumber),
		regexHighlighter("strings", 20, stringRe, styleString),
		regexHighlighter("sqlstate", 30, sqlstateRe, styleSQLState),
	}
	if c.thresholds.Valid() {
		c.highlighters = append(c.highlighters, durationHighlighter(c.thresholds))
	}
}

// AddCustom registers a user regex-based highlighter with the given
// priority and style.
func (c *Chain) AddCustom(name string, priority int, re *regexp.Regexp, style lipgloss.Style) {
	c.custom = append(c.custom, regexHighlighter(name, priority, re, style))
}

// Reset rebuilds the chain after any configuration change (thresholds or
// enabled set).
func (c *Chain) Reset(thresholds DurationThresholds, enabled map[string]bool) {
	c.thresholds = thresholds
	c.enabled = enabled
	c.rebuild()
}

// Highlight runs every enabled highlighter (built-in and custom together,
// in ascending priority order) over line and returns the merged span list
// in that same order, so Render applies higher-priority spans last.
func (c *Chain) Highlight(line string) []Span {
	hs := append(append([]Highlighter{}, c.highlighters...), c.custom...)
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Priority < hs[j].Priority })
	var all []Span
	for _, h := range hs {
		if c.enabled != nil {
			if v, ok := c.enabled[h.Name]; ok && !v {
				continue
			}
		}
		all = append(all, h.find(line)...)
	}
	return all
}

// Render applies spans to line, producing an ANSI-styled string for
// terminal output. Later spans in priority order win on overlap since
// they are rendered last at any given byte.
func Render(line string, spans []Span) string {
	if len(spans) == 0 {
		return line
	}

	type styledByte struct {
		style lipgloss.Style
		set   bool
	}
	styles := make([]styledByte, len(line))
	for _, sp := range spans {
		start, end := sp.Start, sp.End
		if start < 0 {
			start = 0
		}
		if end > len(line) {
			end = len(line)
		}
		for i := start; i < end; i++ {
			styles[i] = styledByte{style: sp.Style, set: true}
		}
	}

	var sb strings.Builder
	i := 0
	for i < len(line) {
		if !styles[i].set {
			sb.WriteByte(line[i])
			i++
			continue
		}
		style := styles[i].style
		j := i
		for j < len(line) && styles[j].set && styles[j].style.Render("x") == style.Render("x") {
			j++
		}
		sb.WriteString(style.Render(line[i:j]))
		i = j
	}
	return sb.String()
}

// Strip removes ANSI/lipgloss style escapes from a rendered line, returning
// plain text. Used by the export package (JSON/CSV always strip; TEXT
// strips unless --preserve-markup) and by tests asserting Testable Property
// 1 (rendered minus style equals raw).
func Strip(s string) string {
	return ansi.Strip(s)
}
