package schedule

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/adw-lab/schedcore/pkg/errors"
	"github.com/adw-lab/schedcore/pkg/model"
)

// Outcome is the soft result of a commit attempt. Hard configuration
// errors travel on the error return instead; an algorithm retries on a
// non-committed outcome without exception-driven control flow.
type Outcome int

const (
	// OutcomeInvalid accompanies a hard error.
	OutcomeInvalid Outcome = iota
	// OutcomeCommitted means the assignment was applied.
	OutcomeCommitted
	// OutcomeConflict means the interval overlaps committed work or falls
	// outside the declared availability windows.
	OutcomeConflict
	// OutcomePrecedenceNotMet means a predecessor is unscheduled, unknown,
	// or finishes after the proposed start.
	OutcomePrecedenceNotMet
	// OutcomeConstraintRejected means a pluggable constraint refused the
	// assignment.
	OutcomeConstraintRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeConflict:
		return "conflict"
	case OutcomePrecedenceNotMet:
		return "precedence_not_met"
	case OutcomeConstraintRejected:
		return "constraint_rejected"
	default:
		return "invalid"
	}
}

// Committed reports whether the outcome applied the assignment.
func (o Outcome) Committed() bool { return o == OutcomeCommitted }

// check runs the full validation pipeline for a proposed assignment
// without mutating anything. It returns the proposed end time computed
// from the effective duration.
func (s *Schedule) check(op *model.Operation, res *model.Resource, start int64) (Outcome, int64, error) {
	if res.Type != op.ResourceType {
		return OutcomeInvalid, 0, apperrors.Clone(apperrors.ErrTypeMismatch,
			fmt.Sprintf("resource %s has type %s, operation %s requires %s", res.ID, res.Type, op.ID, op.ResourceType))
	}
	if !op.EligibleFor(res.ID) {
		return OutcomeInvalid, 0, apperrors.Clone(apperrors.ErrIneligible,
			fmt.Sprintf("resource %s is not eligible for operation %s", res.ID, op.ID))
	}

	end := start + s.effectiveDuration(op, res)

	for _, predID := range op.Precedence {
		pred, ok := s.operations[predID]
		if !ok || pred.EndTime == nil || *pred.EndTime > start {
			return OutcomePrecedenceNotMet, end, nil
		}
	}

	available, err := res.Timeline().IsAvailable(start, end)
	if err != nil {
		return OutcomeInvalid, 0, err
	}
	if !available {
		return OutcomeConflict, end, nil
	}

	for _, c := range s.constraints {
		if !c.Feasible(s, op, res, start, end) {
			return OutcomeConstraintRejected, end, nil
		}
	}
	return OutcomeCommitted, end, nil
}

// Commit attempts to schedule the operation on the resource at the given
// start. The call is atomic: on any non-committed outcome or error the
// model and the timeline are unchanged.
func (s *Schedule) Commit(operationID, resourceID string, start int64) (Outcome, error) {
	began := time.Now()

	op, ok := s.operations[operationID]
	if !ok {
		return OutcomeInvalid, apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("operation %s not found", operationID))
	}
	res, ok := s.resources[resourceID]
	if !ok {
		return OutcomeInvalid, apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("resource %s not found", resourceID))
	}
	if op.IsScheduled() {
		return OutcomeInvalid, apperrors.Clone(apperrors.ErrDuplicate,
			fmt.Sprintf("operation %s is already scheduled; retract it first", operationID))
	}

	outcome, end, err := s.check(op, res, start)
	if err != nil {
		s.metrics.observeCommit(outcome, time.Since(began))
		return OutcomeInvalid, err
	}
	if outcome != OutcomeCommitted {
		s.metrics.observeCommit(outcome, time.Since(began))
		s.logger.Debug("commit refused",
			zap.String("operation_id", operationID),
			zap.String("resource_id", resourceID),
			zap.Int64("start", start),
			zap.String("outcome", outcome.String()))
		return outcome, nil
	}

	inserted, err := res.Timeline().Insert(start, end, op.ID)
	if err != nil {
		return OutcomeInvalid, err
	}
	if !inserted {
		// check already held, so the slot vanished mid-call; with a
		// single writer this indicates external interference.
		return OutcomeInvalid, apperrors.Clone(apperrors.ErrInternal,
			fmt.Sprintf("timeline rejected interval for operation %s after validation", operationID))
	}
	op.Assign(res.ID, start, end)

	s.metrics.observeCommit(OutcomeCommitted, time.Since(began))
	s.metrics.setScheduled(s.scheduledCount())
	s.logger.Info("operation committed",
		zap.String("operation_id", operationID),
		zap.String("resource_id", resourceID),
		zap.Int64("start", start),
		zap.Int64("end", end))
	return OutcomeCommitted, nil
}

// Retract reverts a scheduled operation to the unscheduled state and
// frees its interval. Retracting an unscheduled operation is a no-op; an
// unknown operation id is a hard error.
func (s *Schedule) Retract(operationID string) error {
	op, ok := s.operations[operationID]
	if !ok {
		return apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("operation %s not found", operationID))
	}
	if !op.IsScheduled() {
		return nil
	}

	res, ok := s.resources[*op.ResourceID]
	if !ok {
		return apperrors.Clone(apperrors.ErrInternal,
			fmt.Sprintf("operation %s is assigned to unknown resource %s", operationID, *op.ResourceID))
	}
	if err := res.Timeline().Remove(operationID); err != nil {
		return err
	}
	op.ClearAssignment()

	s.metrics.observeRetract()
	s.metrics.setScheduled(s.scheduledCount())
	s.logger.Info("operation retracted",
		zap.String("operation_id", operationID),
		zap.String("resource_id", res.ID))
	return nil
}

// FindEligibleResources returns, in id order, every resource for which an
// immediately following Commit at the given start would succeed. Nothing
// is mutated.
func (s *Schedule) FindEligibleResources(operationID string, start int64) ([]string, error) {
	op, ok := s.operations[operationID]
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("operation %s not found", operationID))
	}
	if op.IsScheduled() {
		return []string{}, nil
	}

	eligible := make([]string, 0)
	for id, res := range s.resources {
		if res.Type != op.ResourceType || !op.EligibleFor(id) {
			continue
		}
		outcome, _, err := s.check(op, res, start)
		if err != nil {
			continue
		}
		if outcome == OutcomeCommitted {
			eligible = append(eligible, id)
		}
	}
	sort.Strings(eligible)
	return eligible, nil
}

// EarliestStart finds the first start at or after the given time at which
// the operation could be committed to the resource, honouring precedence,
// availability and all pluggable constraints. The second result is false
// when no slot exists within the configured horizon.
func (s *Schedule) EarliestStart(operationID, resourceID string, after int64) (int64, bool, error) {
	op, ok := s.operations[operationID]
	if !ok {
		return 0, false, apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("operation %s not found", operationID))
	}
	res, ok := s.resources[resourceID]
	if !ok {
		return 0, false, apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("resource %s not found", resourceID))
	}
	if res.Type != op.ResourceType {
		return 0, false, apperrors.Clone(apperrors.ErrTypeMismatch,
			fmt.Sprintf("resource %s has type %s, operation %s requires %s", res.ID, res.Type, op.ID, op.ResourceType))
	}
	if !op.EligibleFor(res.ID) {
		return 0, false, apperrors.Clone(apperrors.ErrIneligible,
			fmt.Sprintf("resource %s is not eligible for operation %s", res.ID, op.ID))
	}

	lower := after
	for _, predID := range op.Precedence {
		pred, ok := s.operations[predID]
		if !ok || pred.EndTime == nil {
			return 0, false, nil
		}
		lower = max(lower, *pred.EndTime)
	}

	duration := s.effectiveDuration(op, res)
	limit := after + s.horizon
	for lower <= limit {
		for _, c := range s.constraints {
			lower = c.AdjustEarliestStart(s, op, res, lower)
		}
		start, found, err := res.Timeline().NextAvailable(duration, lower)
		if err != nil {
			return 0, false, err
		}
		if !found || start > limit {
			return 0, false, nil
		}

		feasible := true
		for _, c := range s.constraints {
			if !c.Feasible(s, op, res, start, start+duration) {
				feasible = false
				break
			}
		}
		if feasible {
			return start, true, nil
		}
		lower = start + 1
	}
	return 0, false, nil
}

func (s *Schedule) scheduledCount() int {
	n := 0
	for _, op := range s.operations {
		if op.IsScheduled() {
			n++
		}
	}
	return n
}
