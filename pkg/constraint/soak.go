package constraint

import (
	"github.com/adw-lab/schedcore/pkg/model"
)

// Operation metadata keys consulted by Soak, in priority order.
const (
	MetaSoakSeconds = "soak_seconds"
	MetaSoakMinutes = "soak_minutes"
	MetaSoakHours   = "soak_hours"
)

// Soak enforces a per-operation rest lag within the same job stream: an
// operation carrying a soak value must start at least that long after the
// most recently completed operation of its job.
type Soak struct{}

func (c *Soak) Name() string { return "soak" }

func (c *Soak) Feasible(r Reader, op *model.Operation, res *model.Resource, start, end int64) bool {
	soak, ok := c.soakSeconds(op)
	if !ok || soak <= 0 {
		return true
	}
	priorEnd, ok := c.latestPriorJobEnd(r, op, start)
	if !ok {
		return true
	}
	return start >= priorEnd+soak
}

func (c *Soak) AdjustEarliestStart(r Reader, op *model.Operation, res *model.Resource, earliest int64) int64 {
	soak, ok := c.soakSeconds(op)
	if !ok || soak <= 0 {
		return earliest
	}
	priorEnd, ok := c.latestPriorJobEnd(r, op, earliest)
	if !ok {
		return earliest
	}
	return max(earliest, priorEnd+soak)
}

func (c *Soak) soakSeconds(op *model.Operation) (int64, bool) {
	if v, ok := metaSeconds(op.Metadata, MetaSoakSeconds); ok {
		return v, true
	}
	if v, ok := metaSeconds(op.Metadata, MetaSoakMinutes); ok {
		return v * 60, true
	}
	if v, ok := metaSeconds(op.Metadata, MetaSoakHours); ok {
		return v * 3600, true
	}
	return 0, false
}

// latestPriorJobEnd finds the latest end no later than start among the
// other scheduled operations of the same job.
func (c *Soak) latestPriorJobEnd(r Reader, op *model.Operation, start int64) (int64, bool) {
	job, ok := r.Job(op.JobID)
	if !ok {
		return 0, false
	}
	var latest int64
	found := false
	for _, other := range job.Operations {
		if other.ID == op.ID || other.EndTime == nil {
			continue
		}
		if *other.EndTime <= start && (!found || *other.EndTime > latest) {
			latest = *other.EndTime
			found = true
		}
	}
	return latest, found
}
