package constraint

import (
	"github.com/adw-lab/schedcore/pkg/model"
)

// MetaDueDate is the job metadata key consulted when no explicit due date
// is registered for the job.
const MetaDueDate = "due_date"

// DueDate rejects assignments that would finish after the owning job's
// due date. Due dates come from the explicit map first, then from job
// metadata. Jobs without a due date are unconstrained.
type DueDate struct {
	DueDates map[string]int64
	Strict   bool
}

// NewDueDate builds a strict due-date constraint.
func NewDueDate(dueDates map[string]int64) *DueDate {
	return &DueDate{DueDates: dueDates, Strict: true}
}

func (c *DueDate) Name() string { return "due_date" }

func (c *DueDate) Feasible(r Reader, op *model.Operation, res *model.Resource, start, end int64) bool {
	due, ok := c.dueDate(r, op)
	if !ok || !c.Strict {
		return true
	}
	return end <= due
}

func (c *DueDate) AdjustEarliestStart(r Reader, op *model.Operation, res *model.Resource, earliest int64) int64 {
	return earliest
}

func (c *DueDate) dueDate(r Reader, op *model.Operation) (int64, bool) {
	if due, ok := c.DueDates[op.JobID]; ok {
		return due, true
	}
	job, ok := r.Job(op.JobID)
	if !ok {
		return 0, false
	}
	return metaSeconds(job.Metadata, MetaDueDate)
}
