package constraint

import (
	"fmt"
	"sort"

	apperrors "github.com/adw-lab/schedcore/pkg/errors"
	"github.com/adw-lab/schedcore/pkg/model"
)

// WIPLimit caps the number of distinct jobs in process at any instant
// across all resources, counting the proposed assignment.
type WIPLimit struct {
	Max int
}

// NewWIPLimit rejects a non-positive cap at construction; a zero cap
// would silently refuse every assignment.
func NewWIPLimit(max int) (*WIPLimit, error) {
	if max < 1 {
		return nil, apperrors.Clone(apperrors.ErrValidation,
			fmt.Sprintf("wip limit %d must be at least 1", max))
	}
	return &WIPLimit{Max: max}, nil
}

func (c *WIPLimit) Name() string { return "wip_limit" }

func (c *WIPLimit) Feasible(r Reader, op *model.Operation, res *model.Resource, start, end int64) bool {
	if c.Max <= 0 || start >= end {
		return false
	}

	type event struct {
		ts    int64
		delta int
		jobID string
	}
	var events []event
	for _, other := range r.Operations() {
		if other.StartTime == nil || other.EndTime == nil {
			continue
		}
		events = append(events,
			event{ts: *other.StartTime, delta: 1, jobID: other.JobID},
			event{ts: *other.EndTime, delta: -1, jobID: other.JobID},
		)
	}
	events = append(events,
		event{ts: start, delta: 1, jobID: op.JobID},
		event{ts: end, delta: -1, jobID: op.JobID},
	)

	// Ends sort before starts at equal timestamps so adjacency does not
	// count as concurrency.
	sort.Slice(events, func(i, j int) bool {
		if events[i].ts == events[j].ts {
			return events[i].delta < events[j].delta
		}
		return events[i].ts < events[j].ts
	})

	active := make(map[string]int)
	for _, ev := range events {
		active[ev.jobID] += ev.delta
		if active[ev.jobID] <= 0 {
			delete(active, ev.jobID)
		}
		if len(active) > c.Max {
			return false
		}
	}
	return true
}

func (c *WIPLimit) AdjustEarliestStart(r Reader, op *model.Operation, res *model.Resource, earliest int64) int64 {
	return earliest
}
