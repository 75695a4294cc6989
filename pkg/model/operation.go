package model

// Metadata is an opaque key-value bag attached by callers. The core never
// interprets it; constraints and policies may key off agreed entries.
type Metadata map[string]any

// Operation is one schedulable unit of work with a fixed duration,
// assigned to exactly one resource once committed.
//
// StartTime, EndTime and ResourceID are either all set or all nil; the
// orchestrator is their only mutator.
type Operation struct {
	ID                string   `json:"id" validate:"required"`
	JobID             string   `json:"job_id" validate:"required"`
	Duration          int64    `json:"duration" validate:"gt=0"`
	ResourceType      string   `json:"resource_type" validate:"required"`
	EligibleResources []string `json:"eligible_resources,omitempty"`
	Precedence        []string `json:"precedence,omitempty"`
	Metadata          Metadata `json:"metadata,omitempty"`

	StartTime  *int64  `json:"start_time,omitempty"`
	EndTime    *int64  `json:"end_time,omitempty"`
	ResourceID *string `json:"resource_id,omitempty"`
}

// IsScheduled reports whether the operation has been committed.
func (o *Operation) IsScheduled() bool {
	return o.StartTime != nil && o.EndTime != nil && o.ResourceID != nil
}

// EligibleFor reports whether the resource id passes the eligibility
// restriction. An empty set means any resource of the matching type.
func (o *Operation) EligibleFor(resourceID string) bool {
	if len(o.EligibleResources) == 0 {
		return true
	}
	for _, id := range o.EligibleResources {
		if id == resourceID {
			return true
		}
	}
	return false
}

// Assign sets the scheduled fields as a unit.
func (o *Operation) Assign(resourceID string, start, end int64) {
	o.StartTime = &start
	o.EndTime = &end
	o.ResourceID = &resourceID
}

// ClearAssignment reverts the operation to the unscheduled state.
func (o *Operation) ClearAssignment() {
	o.StartTime = nil
	o.EndTime = nil
	o.ResourceID = nil
}
