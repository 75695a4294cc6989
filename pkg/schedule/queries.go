package schedule

import (
	"fmt"
	"sort"

	apperrors "github.com/adw-lab/schedcore/pkg/errors"
)

// Stats is a point-in-time summary of the schedule. Pure read; consistent
// with what Audit would report.
type Stats struct {
	Jobs                  int `json:"jobs"`
	CompleteJobs          int `json:"complete_jobs"`
	Resources             int `json:"resources"`
	Operations            int `json:"operations"`
	ScheduledOperations   int `json:"scheduled_operations"`
	UnscheduledOperations int `json:"unscheduled_operations"`
}

// Makespan is the elapsed time between the earliest scheduled start and
// the latest scheduled end across the whole schedule. False when nothing
// is scheduled.
func (s *Schedule) Makespan() (int64, bool) {
	var earliest, latest int64
	found := false
	for _, op := range s.operations {
		if op.StartTime == nil {
			continue
		}
		if !found {
			earliest, latest = *op.StartTime, *op.EndTime
			found = true
			continue
		}
		earliest = min(earliest, *op.StartTime)
		latest = max(latest, *op.EndTime)
	}
	if !found {
		return 0, false
	}
	return latest - earliest, true
}

// JobCompletionTime returns the latest scheduled end of the job. The
// second result is false while any owned operation is unscheduled.
func (s *Schedule) JobCompletionTime(jobID string) (int64, bool, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return 0, false, apperrors.Clone(apperrors.ErrNotFound, fmt.Sprintf("job %s not found", jobID))
	}
	if !job.Complete() {
		return 0, false, nil
	}
	end, _ := job.LatestEnd()
	return end, true, nil
}

// ResourceUtilization is the busy fraction of [start, end) on the named
// resource's timeline.
func (s *Schedule) ResourceUtilization(resourceID string, start, end int64) (float64, error) {
	res, ok := s.resources[resourceID]
	if !ok {
		return 0, apperrors.Clone(apperrors.ErrNotFound, fmt.Sprintf("resource %s not found", resourceID))
	}
	return res.Timeline().Utilization(start, end)
}

// Stats summarises registration and scheduling counts.
func (s *Schedule) Stats() Stats {
	st := Stats{
		Jobs:       len(s.jobs),
		Resources:  len(s.resources),
		Operations: len(s.operations),
	}
	for _, job := range s.jobs {
		if job.Complete() {
			st.CompleteJobs++
		}
	}
	for _, op := range s.operations {
		if op.IsScheduled() {
			st.ScheduledOperations++
		} else {
			st.UnscheduledOperations++
		}
	}
	return st
}

// ScheduledOperationIDs returns the ids of all scheduled operations in id
// order, for read-only consumers.
func (s *Schedule) ScheduledOperationIDs() []string {
	return s.operationIDs(true)
}

// UnscheduledOperationIDs returns the ids of all unscheduled operations
// in id order.
func (s *Schedule) UnscheduledOperationIDs() []string {
	return s.operationIDs(false)
}

func (s *Schedule) operationIDs(scheduled bool) []string {
	out := make([]string, 0, len(s.operations))
	for id, op := range s.operations {
		if op.IsScheduled() == scheduled {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
