package history

// Pause transitions FOLLOW -> PAUSED with a zero scroll offset (the
// "pause command" row of the transition table).
func (b *Buffer) Pause() {
	if b.state == Follow {
		b.state = Paused
		b.scrollOffset = 0
		b.newSincePause = 0
	}
}

// ScrollUp transitions FOLLOW -> PAUSED (offset set to lines) or, if
// already paused, simply increases the offset.
func (b *Buffer) ScrollUp(lines int) {
	if b.state == Follow {
		b.state = Paused
		b.newSincePause = 0
	}
	b.scrollOffset += lines
}

// ScrollDown decreases the offset. If it would go at or below zero, the
// viewport transitions back to FOLLOW.
func (b *Buffer) ScrollDown(lines int) {
	if b.state != Paused {
		return
	}
	b.scrollOffset -= lines
	if b.scrollOffset <= 0 {
		b.Follow()
	}
}

// Follow transitions PAUSED -> FOLLOW, resetting offset and the
// since-pause counter.
func (b *Buffer) Follow() {
	b.state = Follow
	b.scrollOffset = 0
	b.newSincePause = 0
}

// JumpHome pauses with the maximum possible offset (oldest passing record
// at the top of the viewport); the runtime passes the total passing visual
// lines, and VisibleLines clamps that offset to the viewport height.
func (b *Buffer) JumpHome(maxOffset int) {
	b.state = Paused
	b.scrollOffset = maxOffset
	b.newSincePause = 0
}

// JumpEnd is equivalent to the "End" transition: back to FOLLOW.
func (b *Buffer) JumpEnd() {
	b.Follow()
}

// VisibleLines walks backward through filter-passing records, skips the
// first scrollOffset visual lines, then collects up to height lines.
// An offset past the oldest full viewport is clamped so the oldest passing
// record sits at the top. Shorter results are bottom-aligned by prepending
// blanks, matching the get_visible query contract.
func (b *Buffer) VisibleLines(height int) []FormattedRecord {
	var passing []FormattedRecord
	total := 0
	for _, e := range b.entries {
		if e.PassesFilter {
			passing = append(passing, e)
			total += b.visualLines(e.Record.Raw)
		}
	}
	offset := b.scrollOffset
	if limit := total - height; offset > limit {
		offset = limit
		if offset < 0 {
			offset = 0
		}
	}

	// Walk from newest to oldest, skipping scrollOffset visual lines,
	// then collecting visual lines until height is filled.
	skipped := 0
	collected := make([]FormattedRecord, 0, height)
	collectedLines := 0

	for i := len(passing) - 1; i >= 0 && collectedLines < height; i-- {
		e := passing[i]
		n := b.visualLines(e.Record.Raw)

		if skipped < offset {
			remaining := offset - skipped
			if n <= remaining {
				skipped += n
				continue
			}
			// Partially skipped record: show it, consuming part of its lines.
			skipped = offset
			n -= remaining
		}

		collected = append(collected, e)
		collectedLines += n
	}

	// collected is newest-first; reverse to chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	if collectedLines < height {
		pad := height - collectedLines
		blanks := make([]FormattedRecord, pad)
		collected = append(blanks, collected...)
	}

	return collected
}
