package constraint

import (
	"fmt"
	"sort"

	apperrors "github.com/adw-lab/schedcore/pkg/errors"
	"github.com/adw-lab/schedcore/pkg/model"
)

// Shift modes.
const (
	ShiftStrict       = "strict"        // operation must fit entirely within a window
	ShiftAllowOverrun = "allow_overrun" // operation must start within a window
	ShiftIgnore       = "ignore"
)

const daySeconds int64 = 86400

// DayWindow is a recurring daily window expressed in seconds of day, both
// bounds within [0, 86400]. End <= Start means the window crosses
// midnight: {79200, 21600} is a 22:00-06:00 night shift.
type DayWindow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Shift enforces recurring daily shift windows. ResourceTypes, when
// non-empty, limits enforcement to resources of the listed types.
type Shift struct {
	Windows       []DayWindow
	Mode          string
	ResourceTypes []string
}

// NewShift validates the mode and window bounds up front so a
// misconfigured constraint fails at construction, not silently at commit
// time.
func NewShift(windows []DayWindow, mode string, resourceTypes ...string) (*Shift, error) {
	switch mode {
	case ShiftStrict, ShiftAllowOverrun, ShiftIgnore:
	default:
		return nil, apperrors.Clone(apperrors.ErrValidation,
			fmt.Sprintf("shift mode %q must be one of %s, %s, %s", mode, ShiftStrict, ShiftAllowOverrun, ShiftIgnore))
	}
	for _, w := range windows {
		if w.Start < 0 || w.Start > daySeconds || w.End < 0 || w.End > daySeconds {
			return nil, apperrors.Clone(apperrors.ErrValidation,
				fmt.Sprintf("shift window [%d, %d) is outside the day", w.Start, w.End))
		}
	}
	return &Shift{Windows: windows, Mode: mode, ResourceTypes: resourceTypes}, nil
}

func (c *Shift) Name() string { return "shift" }

func (c *Shift) Feasible(r Reader, op *model.Operation, res *model.Resource, start, end int64) bool {
	if c.Mode == ShiftIgnore || len(c.Windows) == 0 || !c.applies(res) {
		return true
	}
	for _, s := range c.spansAround(start) {
		if start < s.start || start >= s.end {
			continue
		}
		if c.Mode == ShiftAllowOverrun {
			return true
		}
		return end <= s.end
	}
	return false
}

// AdjustEarliestStart pushes the proposed start to the opening of the next
// window that could accept the operation.
func (c *Shift) AdjustEarliestStart(r Reader, op *model.Operation, res *model.Resource, earliest int64) int64 {
	if c.Mode == ShiftIgnore || len(c.Windows) == 0 || !c.applies(res) {
		return earliest
	}
	if c.Feasible(r, op, res, earliest, earliest+op.Duration) {
		return earliest
	}
	// Two days is enough: either a later window today or the first
	// acceptable window tomorrow.
	for day := int64(0); day < 2; day++ {
		for _, s := range c.spansAround(earliest + day*daySeconds) {
			if s.start < earliest {
				continue
			}
			if c.Feasible(r, op, res, s.start, s.start+op.Duration) {
				return s.start
			}
		}
	}
	return earliest
}

// span is an absolute availability interval materialised from the
// recurring windows.
type span struct {
	start, end int64
}

// spansAround lays the recurring windows onto the day containing ts and
// its neighbours, unwrapping midnight-crossing windows past the day
// boundary and merging spans that touch, so a night shift reads as one
// contiguous interval.
func (c *Shift) spansAround(ts int64) []span {
	dayStart := floorDay(ts)
	spans := make([]span, 0, 3*len(c.Windows))
	for day := int64(-1); day <= 1; day++ {
		base := dayStart + day*daySeconds
		for _, w := range c.Windows {
			end := w.End
			if end <= w.Start {
				end += daySeconds
			}
			spans = append(spans, span{start: base + w.Start, end: base + end})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:0]
	for _, s := range spans {
		if n := len(merged); n > 0 && s.start <= merged[n-1].end {
			merged[n-1].end = max(merged[n-1].end, s.end)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func (c *Shift) applies(res *model.Resource) bool {
	if len(c.ResourceTypes) == 0 {
		return true
	}
	for _, t := range c.ResourceTypes {
		if res != nil && res.Type == t {
			return true
		}
	}
	return false
}

func floorDay(ts int64) int64 {
	d := ts / daySeconds
	if ts < 0 && ts%daySeconds != 0 {
		d--
	}
	return d * daySeconds
}
