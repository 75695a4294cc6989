package timeline

import (
	"fmt"
	"sort"

	apperrors "github.com/adw-lab/schedcore/pkg/errors"
)

// GapIterator walks the idle sub-intervals of a timeline within a fixed
// query range, lazily emitting the complement of the committed intervals.
// Mutating the timeline invalidates an in-flight iterator; Reset re-derives
// the walk from the current state.
type GapIterator struct {
	t          *Timeline
	start, end int64
	cursor     int64
	idx        int
	done       bool
}

// Gaps returns an iterator over the idle sub-intervals of [start, end).
func (t *Timeline) Gaps(start, end int64) (*GapIterator, error) {
	if end <= start {
		return nil, apperrors.Clone(apperrors.ErrInvalidInterval,
			fmt.Sprintf("interval [%d, %d) is malformed", start, end))
	}
	g := &GapIterator{t: t, start: start, end: end}
	g.Reset()
	return g, nil
}

// Next emits the next gap. The third result is false when the range is
// exhausted.
func (g *GapIterator) Next() (int64, int64, bool) {
	if g.done {
		return 0, 0, false
	}
	for g.idx < len(g.t.entries) {
		e := g.t.entries[g.idx]
		if e.Start >= g.end {
			break
		}
		g.idx++
		if e.Start > g.cursor {
			gapStart, gapEnd := g.cursor, e.Start
			g.cursor = e.End
			return gapStart, gapEnd, true
		}
		g.cursor = max(g.cursor, e.End)
	}
	g.done = true
	if g.cursor < g.end {
		return g.cursor, g.end, true
	}
	return 0, 0, false
}

// Reset restarts the iteration from the beginning of the query range.
func (g *GapIterator) Reset() {
	g.cursor = g.start
	g.done = false
	g.idx = sort.Search(len(g.t.entries), func(i int) bool { return g.t.entries[i].End > g.start })
}
