package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adw-lab/schedcore/pkg/constraint"
	apperrors "github.com/adw-lab/schedcore/pkg/errors"
	"github.com/adw-lab/schedcore/pkg/model"
	"github.com/adw-lab/schedcore/pkg/timeline"
)

// newScheduleFixture builds a schedule with two machining resources, one
// assembly resource, and a two-step job (machining then assembly).
func newScheduleFixture(t *testing.T) *Schedule {
	t.Helper()
	s := New("sched-1", "test schedule", 0, 7*86400, nil)

	for _, r := range []struct{ id, typ, name string }{
		{"machine-1", "machining", "CNC 1"},
		{"machine-2", "machining", "CNC 2"},
		{"station-1", "assembly", "Assembly 1"},
	} {
		res, err := model.NewResource(r.id, r.typ, r.name)
		require.NoError(t, err)
		require.NoError(t, s.AddResource(res))
	}

	job := &model.Job{
		ID: "job-1",
		Operations: []*model.Operation{
			{ID: "op-a", JobID: "job-1", Duration: 7200, ResourceType: "machining"},
			{ID: "op-b", JobID: "job-1", Duration: 3600, ResourceType: "assembly", Precedence: []string{"op-a"}},
		},
		Metadata: model.Metadata{"customer": "acme", "priority": "high"},
	}
	require.NoError(t, s.AddJob(job))
	return s
}

func mustCommit(t *testing.T, s *Schedule, opID, resID string, start int64) {
	t.Helper()
	outcome, err := s.Commit(opID, resID, start)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)
}

func TestCommitSuccess(t *testing.T) {
	s := newScheduleFixture(t)

	res, _ := s.Resource("machine-1")
	free, err := res.Timeline().IsAvailable(0, 7200)
	require.NoError(t, err)
	require.True(t, free)

	mustCommit(t, s, "op-a", "machine-1", 0)

	op, _ := s.Operation("op-a")
	require.True(t, op.IsScheduled())
	assert.Equal(t, int64(0), *op.StartTime)
	assert.Equal(t, int64(7200), *op.EndTime)
	assert.Equal(t, "machine-1", *op.ResourceID)

	free, err = res.Timeline().IsAvailable(0, 7200)
	require.NoError(t, err)
	assert.False(t, free)

	free, err = res.Timeline().IsAvailable(7200, 10800)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestCommitUnknownIDs(t *testing.T) {
	s := newScheduleFixture(t)

	_, err := s.Commit("nope", "machine-1", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.Commit("op-a", "nope", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCommitTypeMismatch(t *testing.T) {
	s := newScheduleFixture(t)

	_, err := s.Commit("op-a", "station-1", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTypeMismatch)

	op, _ := s.Operation("op-a")
	assert.False(t, op.IsScheduled())
}

func TestCommitIneligibleResource(t *testing.T) {
	s := newScheduleFixture(t)
	job := &model.Job{
		ID: "job-2",
		Operations: []*model.Operation{
			{ID: "op-c", JobID: "job-2", Duration: 600, ResourceType: "machining",
				EligibleResources: []string{"machine-2"}},
		},
	}
	require.NoError(t, s.AddJob(job))

	_, err := s.Commit("op-c", "machine-1", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrIneligible)

	outcome, err := s.Commit("op-c", "machine-2", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
}

func TestCommitPrecedenceNotMetIsSoft(t *testing.T) {
	s := newScheduleFixture(t)
	mustCommit(t, s, "op-a", "machine-1", 0) // ends at 7200

	outcome, err := s.Commit("op-b", "station-1", 3600)
	require.NoError(t, err)
	assert.Equal(t, OutcomePrecedenceNotMet, outcome)

	op, _ := s.Operation("op-b")
	assert.False(t, op.IsScheduled(), "soft negative must not mutate")

	outcome, err = s.Commit("op-b", "station-1", 7200)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
}

func TestCommitUnscheduledPredecessorIsSoft(t *testing.T) {
	s := newScheduleFixture(t)

	outcome, err := s.Commit("op-b", "station-1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomePrecedenceNotMet, outcome)
}

func TestCommitConflictIsSoft(t *testing.T) {
	s := newScheduleFixture(t)
	mustCommit(t, s, "op-a", "machine-1", 0)

	job := &model.Job{
		ID: "job-2",
		Operations: []*model.Operation{
			{ID: "op-c", JobID: "job-2", Duration: 3600, ResourceType: "machining"},
		},
	}
	require.NoError(t, s.AddJob(job))

	outcome, err := s.Commit("op-c", "machine-1", 3600)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, outcome)

	op, _ := s.Operation("op-c")
	assert.False(t, op.IsScheduled())

	// Adjacent start is legal.
	outcome, err = s.Commit("op-c", "machine-1", 7200)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
}

func TestCommitAlreadyScheduled(t *testing.T) {
	s := newScheduleFixture(t)
	mustCommit(t, s, "op-a", "machine-1", 0)

	_, err := s.Commit("op-a", "machine-2", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestCommitOutsideAvailabilityWindows(t *testing.T) {
	s := New("", "windowed", 0, 86400, nil)
	res, err := model.NewResource("day-shift", "machining", "Day machine",
		timeline.Window{Start: 28800, End: 61200})
	require.NoError(t, err)
	require.NoError(t, s.AddResource(res))

	job := &model.Job{
		ID: "job-1",
		Operations: []*model.Operation{
			{ID: "op-a", JobID: "job-1", Duration: 4800, ResourceType: "machining"},
		},
	}
	require.NoError(t, s.AddJob(job))

	outcome, err := s.Commit("op-a", "day-shift", 60000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, outcome, "interval not fully contained in a window")

	outcome, err = s.Commit("op-a", "day-shift", 28800)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
}

func TestRetractRoundTrip(t *testing.T) {
	s := newScheduleFixture(t)
	res, _ := s.Resource("machine-1")

	mustCommit(t, s, "op-a", "machine-1", 0)
	require.NoError(t, s.Retract("op-a"))

	op, _ := s.Operation("op-a")
	assert.False(t, op.IsScheduled())
	assert.Nil(t, op.StartTime)
	assert.Nil(t, op.EndTime)
	assert.Nil(t, op.ResourceID)
	assert.Equal(t, 0, res.Timeline().Len())

	free, err := res.Timeline().IsAvailable(0, 7200)
	require.NoError(t, err)
	assert.True(t, free, "retract must restore the pre-commit timeline")
}

func TestRetractUnscheduledIsNoOp(t *testing.T) {
	s := newScheduleFixture(t)
	require.NoError(t, s.Retract("op-a"))
}

func TestRetractUnknownOperation(t *testing.T) {
	s := newScheduleFixture(t)
	err := s.Retract("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddJobDuplicateAndValidation(t *testing.T) {
	s := newScheduleFixture(t)

	err := s.AddJob(&model.Job{ID: "job-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	err = s.AddJob(&model.Job{
		ID: "job-2",
		Operations: []*model.Operation{
			{ID: "op-a", JobID: "job-2", Duration: 600, ResourceType: "machining"},
		},
	})
	require.Error(t, err, "operation id already indexed")
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	_, registered := s.Job("job-2")
	assert.False(t, registered, "failed registration must be atomic")

	err = s.AddJob(&model.Job{
		ID: "job-3",
		Operations: []*model.Operation{
			{ID: "op-z", JobID: "job-3", Duration: 0, ResourceType: "machining"},
		},
	})
	require.Error(t, err, "zero duration is a hard validation error")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAddJobRejectsForeignOperations(t *testing.T) {
	s := New("", "s", 0, 0, nil)
	err := s.AddJob(&model.Job{
		ID: "job-1",
		Operations: []*model.Operation{
			{ID: "op-a", JobID: "job-other", Duration: 600, ResourceType: "machining"},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAddJobRejectsPreScheduledOperations(t *testing.T) {
	s := New("", "s", 0, 0, nil)
	op := &model.Operation{ID: "op-a", JobID: "job-1", Duration: 600, ResourceType: "machining"}
	op.Assign("machine-1", 0, 600)

	err := s.AddJob(&model.Job{ID: "job-1", Operations: []*model.Operation{op}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAddResourceDuplicate(t *testing.T) {
	s := newScheduleFixture(t)
	res, err := model.NewResource("machine-1", "machining", "CNC 1 again")
	require.NoError(t, err)

	err = s.AddResource(res)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestFindEligibleResources(t *testing.T) {
	s := newScheduleFixture(t)

	eligible, err := s.FindEligibleResources("op-a", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"machine-1", "machine-2"}, eligible)

	mustCommit(t, s, "op-a", "machine-1", 0)

	// op-b's predecessor ends at 7200, so nothing qualifies at t=0.
	eligible, err = s.FindEligibleResources("op-b", 0)
	require.NoError(t, err)
	assert.Empty(t, eligible)

	eligible, err = s.FindEligibleResources("op-b", 7200)
	require.NoError(t, err)
	assert.Equal(t, []string{"station-1"}, eligible)
}

func TestFindEligibleResourcesNeverLies(t *testing.T) {
	s := newScheduleFixture(t)
	mustCommit(t, s, "op-a", "machine-1", 0)

	job := &model.Job{
		ID: "job-2",
		Operations: []*model.Operation{
			{ID: "op-c", JobID: "job-2", Duration: 3600, ResourceType: "machining"},
		},
	}
	require.NoError(t, s.AddJob(job))

	eligible, err := s.FindEligibleResources("op-c", 3600)
	require.NoError(t, err)
	assert.Equal(t, []string{"machine-2"}, eligible, "machine-1 is busy at 3600")

	for _, id := range eligible {
		outcome, err := s.Commit("op-c", id, 3600)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, outcome)
		require.NoError(t, s.Retract("op-c"))
	}
}

func TestFindEligibleResourcesUnknownOperation(t *testing.T) {
	s := newScheduleFixture(t)
	_, err := s.FindEligibleResources("nope", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEarliestStartSkipsBusyStretch(t *testing.T) {
	s := newScheduleFixture(t)
	mustCommit(t, s, "op-a", "machine-1", 0)

	job := &model.Job{
		ID: "job-2",
		Operations: []*model.Operation{
			{ID: "op-c", JobID: "job-2", Duration: 3600, ResourceType: "machining"},
		},
	}
	require.NoError(t, s.AddJob(job))

	start, found, err := s.EarliestStart("op-c", "machine-1", 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7200), start)
}

func TestEarliestStartHonoursPrecedence(t *testing.T) {
	s := newScheduleFixture(t)

	// Predecessor unscheduled: no lower bound exists yet.
	_, found, err := s.EarliestStart("op-b", "station-1", 0)
	require.NoError(t, err)
	assert.False(t, found)

	mustCommit(t, s, "op-a", "machine-1", 0)

	start, found, err := s.EarliestStart("op-b", "station-1", 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7200), start)
}

func TestEarliestStartHorizonExhausted(t *testing.T) {
	s := newScheduleFixture(t)
	mustCommit(t, s, "op-a", "machine-1", 0)

	job := &model.Job{
		ID: "job-2",
		Operations: []*model.Operation{
			{ID: "op-c", JobID: "job-2", Duration: 3600, ResourceType: "machining"},
		},
	}
	require.NoError(t, s.AddJob(job))

	// With the default horizon the slot after the busy stretch is found.
	start, found, err := s.EarliestStart("op-c", "machine-1", 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7200), start)

	// A one-hour horizon ends inside the busy stretch: soft not-found,
	// no error.
	s.SetHorizon(time.Hour)
	_, found, err = s.EarliestStart("op-c", "machine-1", 0)
	require.NoError(t, err)
	assert.False(t, found, "machine is booked solid past the search horizon")

	// Searching from beyond the busy stretch succeeds again.
	start, found, err = s.EarliestStart("op-c", "machine-1", 7200)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7200), start)
}

func TestEarliestStartTypeMismatchIsHard(t *testing.T) {
	s := newScheduleFixture(t)
	_, _, err := s.EarliestStart("op-a", "station-1", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTypeMismatch)
}

type rejectBefore struct {
	threshold int64
}

func (c *rejectBefore) Name() string { return "reject_before" }

func (c *rejectBefore) Feasible(r constraint.Reader, op *model.Operation, res *model.Resource, start, end int64) bool {
	return start >= c.threshold
}

func (c *rejectBefore) AdjustEarliestStart(r constraint.Reader, op *model.Operation, res *model.Resource, earliest int64) int64 {
	return max(earliest, c.threshold)
}

func TestCommitConstraintRejectedIsSoft(t *testing.T) {
	s := newScheduleFixture(t)
	s.AddConstraint(&rejectBefore{threshold: 1000})

	outcome, err := s.Commit("op-a", "machine-1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConstraintRejected, outcome)

	op, _ := s.Operation("op-a")
	assert.False(t, op.IsScheduled())

	outcome, err = s.Commit("op-a", "machine-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
}

func TestEarliestStartAppliesConstraintAdjustment(t *testing.T) {
	s := newScheduleFixture(t)
	s.AddConstraint(&rejectBefore{threshold: 5000})

	start, found, err := s.EarliestStart("op-a", "machine-1", 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(5000), start)
}

func TestDurationPolicyExtendsOccupancy(t *testing.T) {
	s := newScheduleFixture(t)
	s.SetDurationPolicy(DurationPolicyFunc(
		func(r constraint.Reader, op *model.Operation, res *model.Resource) int64 {
			if res.ID == "machine-1" {
				return 600
			}
			return 0
		}))

	mustCommit(t, s, "op-a", "machine-1", 0)

	op, _ := s.Operation("op-a")
	assert.Equal(t, int64(7800), *op.EndTime, "policy adds 600s of occupancy on machine-1")

	res, _ := s.Resource("machine-1")
	free, err := res.Timeline().IsAvailable(7200, 7800)
	require.NoError(t, err)
	assert.False(t, free, "adjusted occupancy covers the extra time")
}

func TestGeneratedScheduleID(t *testing.T) {
	s := New("", "anonymous", 0, 0, nil)
	assert.NotEmpty(t, s.ID)
}

func TestMetricsCollectors(t *testing.T) {
	s := newScheduleFixture(t)
	m := NewMetrics()
	s.SetMetrics(m)

	mustCommit(t, s, "op-a", "machine-1", 0)
	require.NoError(t, s.Retract("op-a"))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["schedcore_commits_total"])
	assert.True(t, names["schedcore_retracts_total"])
	assert.True(t, names["schedcore_operations_scheduled"])
}
