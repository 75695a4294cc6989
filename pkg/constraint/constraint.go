// Package constraint provides pluggable commit-time scheduling rules.
// Constraints are consulted by the orchestrator after the built-in checks
// pass; a rejection is a soft negative, never an error.
package constraint

import (
	"github.com/adw-lab/schedcore/pkg/model"
)

// Reader is the read-only view of a schedule that constraints evaluate
// against. The orchestrator implements it.
type Reader interface {
	Operation(id string) (*model.Operation, bool)
	Job(id string) (*model.Job, bool)
	Operations() []*model.Operation
}

// Constraint decides whether a proposed assignment [start, end) of an
// operation to a resource is acceptable, and may push a proposed earliest
// start forward to the first instant it could accept.
type Constraint interface {
	Name() string
	Feasible(r Reader, op *model.Operation, res *model.Resource, start, end int64) bool
	AdjustEarliestStart(r Reader, op *model.Operation, res *model.Resource, earliest int64) int64
}

// latestPredecessorEnd returns the maximum end time across the scheduled
// predecessors of op, or false when none is scheduled.
func latestPredecessorEnd(r Reader, op *model.Operation) (int64, bool) {
	var latest int64
	found := false
	for _, predID := range op.Precedence {
		pred, ok := r.Operation(predID)
		if !ok || pred.EndTime == nil {
			continue
		}
		if !found || *pred.EndTime > latest {
			latest = *pred.EndTime
			found = true
		}
	}
	return latest, found
}

// metaSeconds coerces a metadata entry into whole seconds. Metadata is
// opaque to the core, so both integer and float encodings are accepted.
func metaSeconds(m model.Metadata, key string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
