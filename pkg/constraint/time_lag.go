package constraint

import (
	"github.com/adw-lab/schedcore/pkg/model"
)

// Operation metadata keys consulted by TimeLag.
const (
	MetaMinDelaySeconds = "min_delay_seconds"
	MetaMaxDelaySeconds = "max_delay_seconds"
)

// TimeLag enforces minimum and maximum waiting time between an operation
// and its latest finished predecessor. Operations without the metadata
// keys, or without scheduled predecessors, are unconstrained.
type TimeLag struct{}

func (c *TimeLag) Name() string { return "time_lag" }

func (c *TimeLag) Feasible(r Reader, op *model.Operation, res *model.Resource, start, end int64) bool {
	maxDelay, ok := metaSeconds(op.Metadata, MetaMaxDelaySeconds)
	if !ok {
		return true
	}
	predEnd, ok := latestPredecessorEnd(r, op)
	if !ok {
		return true
	}
	return start <= predEnd+maxDelay
}

func (c *TimeLag) AdjustEarliestStart(r Reader, op *model.Operation, res *model.Resource, earliest int64) int64 {
	minDelay, ok := metaSeconds(op.Metadata, MetaMinDelaySeconds)
	if !ok {
		return earliest
	}
	predEnd, ok := latestPredecessorEnd(r, op)
	if !ok {
		return earliest
	}
	return max(earliest, predEnd+minDelay)
}
