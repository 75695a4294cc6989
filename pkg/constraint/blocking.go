package constraint

import (
	"github.com/adw-lab/schedcore/pkg/model"
)

// Blocking enforces a no-wait rule: an operation with scheduled
// predecessors must start exactly when the latest of them ends, within
// Epsilon seconds. When FlaggedJobsOnly is set, only jobs whose metadata
// carries model.MetaBlocking are affected.
type Blocking struct {
	Epsilon         int64
	FlaggedJobsOnly bool
}

func (c *Blocking) Name() string { return "blocking" }

func (c *Blocking) Feasible(r Reader, op *model.Operation, res *model.Resource, start, end int64) bool {
	if !c.applies(r, op) {
		return true
	}
	predEnd, ok := latestPredecessorEnd(r, op)
	if !ok {
		return true
	}
	diff := start - predEnd
	if diff < 0 {
		diff = -diff
	}
	return diff <= c.Epsilon
}

func (c *Blocking) AdjustEarliestStart(r Reader, op *model.Operation, res *model.Resource, earliest int64) int64 {
	if !c.applies(r, op) {
		return earliest
	}
	predEnd, ok := latestPredecessorEnd(r, op)
	if !ok {
		return earliest
	}
	return max(earliest, predEnd)
}

func (c *Blocking) applies(r Reader, op *model.Operation) bool {
	if !c.FlaggedJobsOnly {
		return true
	}
	job, ok := r.Job(op.JobID)
	if !ok {
		return false
	}
	flagged, _ := job.Metadata[model.MetaBlocking].(bool)
	return flagged
}
