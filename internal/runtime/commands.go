package runtime

import (
	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/highlight"
	"github.com/willibrandon/pgtail/internal/record"
)

// applyFilterMutation pushes the (already-mutated) filter state into the
// source and refilters the history buffer so the viewport reflects the
// new predicates on already-ingested records immediately.
func (rt *Runtime) applyFilterMutation() {
	if src, ok := rt.source.(interface{ UpdateFilter(*filter.State) }); ok {
		src.UpdateFilter(rt.Filter)
	}
	rt.History.Refilter(rt.Filter)
}

// SetLevels replaces the active level filter. A nil set means "show all".
func (rt *Runtime) SetLevels(levels map[record.Level]bool) {
	rt.mu.Lock()
	rt.Filter.Levels = levels
	rt.mu.Unlock()
	rt.applyFilterMutation()
}

// SetRegex applies one regex filter token (`/pat/`, `+/pat/`, `-/pat/`,
// `&/pat/`) to the active regex state.
func (rt *Runtime) SetRegex(token string) error {
	rt.mu.Lock()
	err := rt.Filter.Regex.ApplyToken(token)
	rt.mu.Unlock()
	if err != nil {
		return err
	}
	rt.applyFilterMutation()
	return nil
}

// ClearRegex empties the active regex filter state.
func (rt *Runtime) ClearRegex() {
	rt.mu.Lock()
	rt.Filter.Regex.Clear()
	rt.mu.Unlock()
	rt.applyFilterMutation()
}

// SetTimeWindow parses and applies a time-window spec (`since X`,
// `until X`, `between X Y`).
func (rt *Runtime) SetTimeWindow(spec string) error {
	tw, err := filter.ParseTimeWindow(spec)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	rt.Filter.TimeWindow = tw
	rt.mu.Unlock()
	rt.applyFilterMutation()
	return nil
}

// SetFieldFilter applies a `field=value` token to the field-equality map.
func (rt *Runtime) SetFieldFilter(token string) error {
	rt.mu.Lock()
	err := rt.Filter.Field.Add(token)
	rt.mu.Unlock()
	if err != nil {
		return err
	}
	rt.applyFilterMutation()
	return nil
}

// ClearFieldFilter empties the field-equality map.
func (rt *Runtime) ClearFieldFilter() {
	rt.mu.Lock()
	rt.Filter.Field.Clear()
	rt.mu.Unlock()
	rt.applyFilterMutation()
}

// Clear restores the filter state to the session anchor (the state
// captured at construction, which may already carry e.g. --since 1h from
// the CLI) and empties the buffer.
func (rt *Runtime) Clear() {
	rt.mu.Lock()
	restored := rt.anchor.Clone()
	rt.Filter.Levels = restored.Levels
	rt.Filter.Regex = restored.Regex
	rt.Filter.Field = restored.Field
	rt.Filter.TimeWindow = restored.TimeWindow
	rt.mu.Unlock()

	rt.History.Clear()
	rt.applyFilterMutation()
}

// ClearForce clears everything, including the anchor itself, and empties
// the buffer.
func (rt *Runtime) ClearForce() {
	empty := filter.State{}
	rt.mu.Lock()
	*rt.Filter = empty
	rt.anchor = empty.Clone()
	rt.mu.Unlock()

	rt.History.Clear()
	rt.applyFilterMutation()
}

// Pause transitions the viewport FOLLOW -> PAUSED.
func (rt *Runtime) Pause() { rt.History.Pause() }

// Follow transitions the viewport PAUSED -> FOLLOW.
func (rt *Runtime) Follow() { rt.History.Follow() }

// JumpHome pauses with the maximum scroll offset (the oldest passing
// record visible at the top of the viewport).
func (rt *Runtime) JumpHome() {
	rt.History.JumpHome(rt.History.PassingVisualLines())
}

// JumpEnd transitions the viewport back to FOLLOW.
func (rt *Runtime) JumpEnd() { rt.History.JumpEnd() }

// Scroll moves the viewport by delta visual lines: positive scrolls up
// (toward older records, pausing if currently following), negative scrolls
// down (toward newer records, possibly returning to FOLLOW).
func (rt *Runtime) Scroll(delta int) {
	if delta > 0 {
		rt.History.ScrollUp(delta)
	} else if delta < 0 {
		rt.History.ScrollDown(-delta)
	}
}

// SetHighlighterConfig rebuilds the highlighter chain with new duration
// thresholds and per-highlighter enable flags.
func (rt *Runtime) SetHighlighterConfig(thresholds highlight.DurationThresholds, enabled map[string]bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.Highlight.Reset(thresholds, enabled)
}

// ResetHighlighters restores every highlighter to enabled with the given
// thresholds.
func (rt *Runtime) ResetHighlighters(thresholds highlight.DurationThresholds) {
	rt.SetHighlighterConfig(thresholds, nil)
}

// StopCommand halts the source and the consume loop. Equivalent to calling
// Runtime.Stop directly; kept as a command-interface alias.
func (rt *Runtime) StopCommand() { rt.Stop() }
