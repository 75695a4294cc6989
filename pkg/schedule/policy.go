package schedule

import (
	"github.com/adw-lab/schedcore/pkg/constraint"
	"github.com/adw-lab/schedcore/pkg/model"
)

// DurationPolicy returns additional seconds of timeline occupancy on top
// of an operation's nominal duration for a specific resource assignment.
// Negative adjustments are ignored.
type DurationPolicy interface {
	Adjust(r constraint.Reader, op *model.Operation, res *model.Resource) int64
}

// DurationPolicyFunc adapts a plain function into a DurationPolicy.
type DurationPolicyFunc func(r constraint.Reader, op *model.Operation, res *model.Resource) int64

func (f DurationPolicyFunc) Adjust(r constraint.Reader, op *model.Operation, res *model.Resource) int64 {
	return f(r, op, res)
}

// effectiveDuration is the nominal duration plus any policy adjustment.
func (s *Schedule) effectiveDuration(op *model.Operation, res *model.Resource) int64 {
	d := op.Duration
	if s.policy != nil {
		if extra := s.policy.Adjust(s, op, res); extra > 0 {
			d += extra
		}
	}
	return d
}
