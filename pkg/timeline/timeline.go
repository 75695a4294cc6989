package timeline

import (
	"fmt"
	"sort"

	apperrors "github.com/adw-lab/schedcore/pkg/errors"
)

// Window is a half-open availability window [Start, End) in epoch seconds.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Entry is a committed half-open interval [Start, End) occupied by one
// operation. The entry carries only a back-reference; the operation record
// stays the single source of truth for its own scheduled fields.
type Entry struct {
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	OperationID string `json:"operation_id"`
}

// Timeline maintains the committed intervals of a single resource, kept
// sorted by start time and pairwise non-overlapping. An empty window set
// means the resource is always available.
//
// Two intervals are adjacent, not overlapping, when one ends exactly where
// the other starts.
type Timeline struct {
	windows []Window
	entries []Entry
}

// New builds a timeline with the given availability windows. Windows are
// sorted, must each satisfy start < end, and must not overlap; adjacent
// windows are coalesced so containment checks can use a single window.
func New(windows []Window) (*Timeline, error) {
	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := make([]Window, 0, len(sorted))
	for _, w := range sorted {
		if w.End <= w.Start {
			return nil, apperrors.Clone(apperrors.ErrInvalidInterval,
				fmt.Sprintf("availability window [%d, %d) is malformed", w.Start, w.End))
		}
		if n := len(merged); n > 0 {
			prev := &merged[n-1]
			if w.Start < prev.End {
				return nil, apperrors.Clone(apperrors.ErrValidation,
					fmt.Sprintf("availability windows [%d, %d) and [%d, %d) overlap", prev.Start, prev.End, w.Start, w.End))
			}
			if w.Start == prev.End {
				prev.End = w.End
				continue
			}
		}
		merged = append(merged, w)
	}

	return &Timeline{windows: merged}, nil
}

// IsAvailable reports whether [start, end) overlaps no committed interval
// and, when windows are declared, lies fully inside one of them. A
// malformed interval is a hard error.
func (t *Timeline) IsAvailable(start, end int64) (bool, error) {
	if end <= start {
		return false, apperrors.Clone(apperrors.ErrInvalidInterval,
			fmt.Sprintf("interval [%d, %d) is malformed", start, end))
	}
	if !t.withinWindows(start, end) {
		return false, nil
	}

	// Locate the insertion point; only the immediate neighbours can overlap.
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Start >= start })
	if i > 0 && t.entries[i-1].End > start {
		return false, nil
	}
	if i < len(t.entries) && t.entries[i].Start < end {
		return false, nil
	}
	return true, nil
}

// Insert commits [start, end) for operationID. It returns false without
// mutating when the interval is unavailable; malformed input or a
// duplicate operation id is a hard error.
func (t *Timeline) Insert(start, end int64, operationID string) (bool, error) {
	if operationID == "" {
		return false, apperrors.Clone(apperrors.ErrValidation, "operation id is required")
	}
	if t.indexOf(operationID) >= 0 {
		return false, apperrors.Clone(apperrors.ErrDuplicate,
			fmt.Sprintf("operation %s already occupies this timeline", operationID))
	}
	ok, err := t.IsAvailable(start, end)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Start >= start })
	t.entries = append(t.entries, Entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = Entry{Start: start, End: end, OperationID: operationID}
	return true, nil
}

// Remove deletes the interval keyed by operationID.
func (t *Timeline) Remove(operationID string) error {
	i := t.indexOf(operationID)
	if i < 0 {
		return apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("operation %s not found on this timeline", operationID))
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return nil
}

// NextAvailable returns the start of the first free slot of at least
// duration seconds beginning at or after the given time. The second result
// is false when the declared windows are exhausted; on a resource without
// windows a slot always exists.
func (t *Timeline) NextAvailable(duration, after int64) (int64, bool, error) {
	if duration <= 0 {
		return 0, false, apperrors.Clone(apperrors.ErrValidation, "duration must be positive")
	}
	if len(t.windows) == 0 {
		start, ok := t.firstFit(after, 0, false, duration)
		return start, ok, nil
	}
	for _, w := range t.windows {
		if w.End <= after {
			continue
		}
		if start, ok := t.firstFit(max(w.Start, after), w.End, true, duration); ok {
			return start, true, nil
		}
	}
	return 0, false, nil
}

// firstFit scans the gaps between committed intervals from lo, optionally
// bounded above by hi.
func (t *Timeline) firstFit(lo, hi int64, bounded bool, duration int64) (int64, bool) {
	cur := lo
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].End > cur })
	for ; i < len(t.entries); i++ {
		e := t.entries[i]
		if e.Start >= cur+duration {
			break
		}
		cur = max(cur, e.End)
	}
	if bounded && cur+duration > hi {
		return 0, false
	}
	return cur, true
}

// Utilization is the fraction of [start, end) covered by committed
// intervals. A zero-length window is a domain error, not a zero result.
func (t *Timeline) Utilization(start, end int64) (float64, error) {
	if end < start {
		return 0, apperrors.Clone(apperrors.ErrInvalidInterval,
			fmt.Sprintf("interval [%d, %d) is malformed", start, end))
	}
	if end == start {
		return 0, apperrors.Clone(apperrors.ErrEmptyWindow,
			fmt.Sprintf("utilization window at %d has zero length", start))
	}

	var busy int64
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].End > start })
	for ; i < len(t.entries); i++ {
		e := t.entries[i]
		if e.Start >= end {
			break
		}
		busy += min(e.End, end) - max(e.Start, start)
	}
	return float64(busy) / float64(end-start), nil
}

// At returns the entry occupying the given instant, if any.
func (t *Timeline) At(ts int64) (Entry, bool) {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Start > ts })
	if i > 0 && t.entries[i-1].End > ts {
		return t.entries[i-1], true
	}
	return Entry{}, false
}

// Entries returns a copy of the committed intervals in start order.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Windows returns a copy of the declared availability windows.
func (t *Timeline) Windows() []Window {
	out := make([]Window, len(t.windows))
	copy(out, t.windows)
	return out
}

// Len reports the number of committed intervals.
func (t *Timeline) Len() int {
	return len(t.entries)
}

func (t *Timeline) withinWindows(start, end int64) bool {
	if len(t.windows) == 0 {
		return true
	}
	i := sort.Search(len(t.windows), func(i int) bool { return t.windows[i].Start > start })
	if i == 0 {
		return false
	}
	w := t.windows[i-1]
	return start >= w.Start && end <= w.End
}

func (t *Timeline) indexOf(operationID string) int {
	for i, e := range t.entries {
		if e.OperationID == operationID {
			return i
		}
	}
	return -1
}
