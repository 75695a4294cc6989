package schedule

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/adw-lab/schedcore/pkg/model"
	"github.com/adw-lab/schedcore/pkg/timeline"
)

// Audit rule identifiers.
const (
	RuleAssignmentFields = "assignment_fields"
	RuleTimelineOverlap  = "timeline_overlap"
	RuleOutsideWindows   = "outside_availability"
	RulePrecedence       = "precedence_violated"
	RuleOrphan           = "orphaned_operation"
	RuleTimelineDrift    = "timeline_mismatch"
)

// Violation names one broken invariant and the entities involved.
type Violation struct {
	Rule        string `json:"rule"`
	OperationID string `json:"operation_id,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
	JobID       string `json:"job_id,omitempty"`
	Message     string `json:"message"`
}

// Audit re-derives every invariant from scratch, independent of the
// incremental commit/retract bookkeeping, and returns the violations
// found. It never fails; a healthy schedule yields an empty slice.
func (s *Schedule) Audit() []Violation {
	violations := make([]Violation, 0)

	violations = append(violations, s.auditIndex()...)
	violations = append(violations, s.auditAssignments()...)
	violations = append(violations, s.auditResources()...)
	violations = append(violations, s.auditPrecedence()...)

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Rule != violations[j].Rule {
			return violations[i].Rule < violations[j].Rule
		}
		return violations[i].OperationID < violations[j].OperationID
	})
	if len(violations) > 0 {
		s.logger.Warn("audit found violations",
			zap.String("schedule_id", s.ID),
			zap.Int("count", len(violations)))
	}
	return violations
}

// auditIndex cross-checks the denormalised operation index against the
// owning jobs in both directions.
func (s *Schedule) auditIndex() []Violation {
	var out []Violation
	owned := make(map[string]string)
	for _, job := range s.jobs {
		for _, op := range job.Operations {
			owned[op.ID] = job.ID
			if op.JobID != job.ID {
				out = append(out, Violation{
					Rule:        RuleOrphan,
					OperationID: op.ID,
					JobID:       job.ID,
					Message:     fmt.Sprintf("operation %s declares job %s but is owned by %s", op.ID, op.JobID, job.ID),
				})
			}
			if _, indexed := s.operations[op.ID]; !indexed {
				out = append(out, Violation{
					Rule:        RuleOrphan,
					OperationID: op.ID,
					JobID:       job.ID,
					Message:     fmt.Sprintf("operation %s owned by job %s is missing from the index", op.ID, job.ID),
				})
			}
		}
	}
	for id, op := range s.operations {
		if _, ok := owned[id]; !ok {
			out = append(out, Violation{
				Rule:        RuleOrphan,
				OperationID: id,
				JobID:       op.JobID,
				Message:     fmt.Sprintf("operation %s is indexed but owned by no registered job", id),
			})
		}
	}
	return out
}

// auditAssignments checks the all-or-none scheduled fields and the
// recorded duration of every operation.
func (s *Schedule) auditAssignments() []Violation {
	var out []Violation
	for id, op := range s.operations {
		set := 0
		if op.StartTime != nil {
			set++
		}
		if op.EndTime != nil {
			set++
		}
		if op.ResourceID != nil {
			set++
		}
		if set != 0 && set != 3 {
			out = append(out, Violation{
				Rule:        RuleAssignmentFields,
				OperationID: id,
				JobID:       op.JobID,
				Message:     fmt.Sprintf("operation %s has partially set scheduled fields", id),
			})
			continue
		}
		if set == 0 {
			continue
		}
		span := *op.EndTime - *op.StartTime
		if s.policy == nil && span != op.Duration {
			out = append(out, Violation{
				Rule:        RuleAssignmentFields,
				OperationID: id,
				JobID:       op.JobID,
				Message:     fmt.Sprintf("operation %s spans %ds but has duration %ds", id, span, op.Duration),
			})
		}
		if s.policy != nil && span < op.Duration {
			out = append(out, Violation{
				Rule:        RuleAssignmentFields,
				OperationID: id,
				JobID:       op.JobID,
				Message:     fmt.Sprintf("operation %s spans %ds, less than its duration %ds", id, span, op.Duration),
			})
		}
	}
	return out
}

// auditResources rebuilds each resource's occupancy from the operation
// records and checks overlap, window containment, and agreement with the
// incrementally maintained timeline.
func (s *Schedule) auditResources() []Violation {
	var out []Violation

	byResource := make(map[string][]*model.Operation)
	for _, op := range s.operations {
		if !op.IsScheduled() {
			continue
		}
		resID := *op.ResourceID
		if _, ok := s.resources[resID]; !ok {
			out = append(out, Violation{
				Rule:        RuleOrphan,
				OperationID: op.ID,
				ResourceID:  resID,
				Message:     fmt.Sprintf("operation %s is assigned to unknown resource %s", op.ID, resID),
			})
			continue
		}
		byResource[resID] = append(byResource[resID], op)
	}

	for resID, ops := range byResource {
		res := s.resources[resID]
		sort.Slice(ops, func(i, j int) bool { return *ops[i].StartTime < *ops[j].StartTime })

		for i := 1; i < len(ops); i++ {
			prev, cur := ops[i-1], ops[i]
			if *prev.EndTime > *cur.StartTime {
				out = append(out, Violation{
					Rule:        RuleTimelineOverlap,
					OperationID: cur.ID,
					ResourceID:  resID,
					Message: fmt.Sprintf("operations %s and %s overlap on resource %s",
						prev.ID, cur.ID, resID),
				})
			}
		}

		windows := res.Timeline().Windows()
		for _, op := range ops {
			if !containedInWindows(windows, *op.StartTime, *op.EndTime) {
				out = append(out, Violation{
					Rule:        RuleOutsideWindows,
					OperationID: op.ID,
					ResourceID:  resID,
					Message: fmt.Sprintf("operation %s occupies [%d, %d) outside the availability windows of %s",
						op.ID, *op.StartTime, *op.EndTime, resID),
				})
			}
		}
	}

	out = append(out, s.auditTimelineDrift(byResource)...)
	return out
}

// auditTimelineDrift verifies that the incrementally maintained timelines
// agree with the operation records.
func (s *Schedule) auditTimelineDrift(byResource map[string][]*model.Operation) []Violation {
	var out []Violation
	for resID, res := range s.resources {
		scheduled := make(map[string]*model.Operation, len(byResource[resID]))
		for _, op := range byResource[resID] {
			scheduled[op.ID] = op
		}
		seen := make(map[string]bool)
		for _, e := range res.Timeline().Entries() {
			seen[e.OperationID] = true
			op, ok := scheduled[e.OperationID]
			if !ok {
				out = append(out, Violation{
					Rule:        RuleTimelineDrift,
					OperationID: e.OperationID,
					ResourceID:  resID,
					Message: fmt.Sprintf("timeline of %s holds an entry for %s which is not scheduled there",
						resID, e.OperationID),
				})
				continue
			}
			if *op.StartTime != e.Start || *op.EndTime != e.End {
				out = append(out, Violation{
					Rule:        RuleTimelineDrift,
					OperationID: e.OperationID,
					ResourceID:  resID,
					Message: fmt.Sprintf("timeline entry [%d, %d) disagrees with operation record [%d, %d)",
						e.Start, e.End, *op.StartTime, *op.EndTime),
				})
			}
		}
		for id := range scheduled {
			if !seen[id] {
				out = append(out, Violation{
					Rule:        RuleTimelineDrift,
					OperationID: id,
					ResourceID:  resID,
					Message:     fmt.Sprintf("operation %s is scheduled on %s but absent from its timeline", id, resID),
				})
			}
		}
	}
	return out
}

// auditPrecedence judges recorded times as-is: every scheduled operation
// must start no earlier than each predecessor's recorded end.
func (s *Schedule) auditPrecedence() []Violation {
	var out []Violation
	for id, op := range s.operations {
		if !op.IsScheduled() {
			continue
		}
		for _, predID := range op.Precedence {
			pred, ok := s.operations[predID]
			if !ok {
				out = append(out, Violation{
					Rule:        RuleOrphan,
					OperationID: id,
					JobID:       op.JobID,
					Message:     fmt.Sprintf("operation %s references unknown predecessor %s", id, predID),
				})
				continue
			}
			if pred.EndTime == nil {
				out = append(out, Violation{
					Rule:        RulePrecedence,
					OperationID: id,
					JobID:       op.JobID,
					Message:     fmt.Sprintf("operation %s is scheduled but predecessor %s is not", id, predID),
				})
				continue
			}
			if *pred.EndTime > *op.StartTime {
				out = append(out, Violation{
					Rule:        RulePrecedence,
					OperationID: id,
					JobID:       op.JobID,
					Message: fmt.Sprintf("operation %s starts at %d before predecessor %s ends at %d",
						id, *op.StartTime, predID, *pred.EndTime),
				})
			}
		}
	}
	return out
}

func containedInWindows(windows []timeline.Window, start, end int64) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if start >= w.Start && end <= w.End {
			return true
		}
	}
	return false
}
