package model

// Job is a named group of operations with optional precedence
// relationships among them. It owns its operations; every derived figure
// below is computed on demand from the owned records.
type Job struct {
	ID         string       `json:"id" validate:"required"`
	Operations []*Operation `json:"operations" validate:"dive"`
	Metadata   Metadata     `json:"metadata,omitempty"`
}

// Complete reports whether every owned operation is scheduled.
func (j *Job) Complete() bool {
	if len(j.Operations) == 0 {
		return false
	}
	for _, op := range j.Operations {
		if !op.IsScheduled() {
			return false
		}
	}
	return true
}

// EarliestStart returns the earliest scheduled start across owned
// operations, or false when none is scheduled.
func (j *Job) EarliestStart() (int64, bool) {
	var earliest int64
	found := false
	for _, op := range j.Operations {
		if op.StartTime == nil {
			continue
		}
		if !found || *op.StartTime < earliest {
			earliest = *op.StartTime
			found = true
		}
	}
	return earliest, found
}

// LatestEnd returns the latest scheduled end across owned operations, or
// false when none is scheduled.
func (j *Job) LatestEnd() (int64, bool) {
	var latest int64
	found := false
	for _, op := range j.Operations {
		if op.EndTime == nil {
			continue
		}
		if !found || *op.EndTime > latest {
			latest = *op.EndTime
			found = true
		}
	}
	return latest, found
}

// Makespan is the elapsed time between the earliest scheduled start and
// the latest scheduled end of the job.
func (j *Job) Makespan() (int64, bool) {
	start, ok := j.EarliestStart()
	if !ok {
		return 0, false
	}
	end, _ := j.LatestEnd()
	return end - start, true
}

// TotalProcessingTime sums the durations of all owned operations,
// scheduled or not.
func (j *Job) TotalProcessingTime() int64 {
	var total int64
	for _, op := range j.Operations {
		total += op.Duration
	}
	return total
}
