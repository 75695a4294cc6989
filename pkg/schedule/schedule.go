// Package schedule implements the constraint-enforcing orchestrator: the
// only mutator of the entity model and the resource timelines. It decides
// nothing about which operation goes where; an external algorithm drives
// it through Commit, Retract and the read-only queries.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adw-lab/schedcore/pkg/constraint"
	apperrors "github.com/adw-lab/schedcore/pkg/errors"
	"github.com/adw-lab/schedcore/pkg/model"
)

const defaultHorizon = 30 * 24 * time.Hour

// Schedule owns the jobs, resources and the denormalised operation index,
// and sequences validation and commitment as one logical transaction per
// call. It is not internally thread-safe: one logical mutator at a time.
type Schedule struct {
	ID   string
	Name string

	// Nominal planning period, used by statistics and reporting only;
	// commits outside it are legal.
	PeriodStart int64
	PeriodEnd   int64

	jobs       map[string]*model.Job
	resources  map[string]*model.Resource
	operations map[string]*model.Operation

	constraints []constraint.Constraint
	policy      DurationPolicy
	horizon     int64

	validate *validator.Validate
	logger   *zap.Logger
	metrics  *Metrics
}

// New builds an empty schedule. An empty id is replaced with a generated
// one; a nil logger is replaced with a no-op logger.
func New(id, name string, periodStart, periodEnd int64, logger *zap.Logger) *Schedule {
	if id == "" {
		id = uuid.NewString()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Schedule{
		ID:          id,
		Name:        name,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		jobs:        make(map[string]*model.Job),
		resources:   make(map[string]*model.Resource),
		operations:  make(map[string]*model.Operation),
		horizon:     int64(defaultHorizon / time.Second),
		validate:    validator.New(),
		logger:      logger,
	}
}

// AddConstraint appends a pluggable commit-time constraint.
func (s *Schedule) AddConstraint(c constraint.Constraint) {
	s.constraints = append(s.constraints, c)
}

// SetDurationPolicy installs a commit-time duration adjustment policy.
func (s *Schedule) SetDurationPolicy(p DurationPolicy) {
	s.policy = p
}

// SetMetrics attaches Prometheus instrumentation. Nil disables it.
func (s *Schedule) SetMetrics(m *Metrics) {
	s.metrics = m
}

// SetHorizon bounds forward slot searches in EarliestStart.
func (s *Schedule) SetHorizon(d time.Duration) {
	if d > 0 {
		s.horizon = int64(d / time.Second)
	}
}

// AddJob registers the job and all of its operations in the indices. The
// registration is atomic: duplicate or malformed input leaves the
// schedule untouched.
func (s *Schedule) AddJob(job *model.Job) error {
	if job == nil {
		return apperrors.Clone(apperrors.ErrValidation, "job is required")
	}
	if err := s.validate.Struct(job); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation.Code,
			fmt.Sprintf("job %s failed validation", job.ID))
	}
	if _, exists := s.jobs[job.ID]; exists {
		return apperrors.Clone(apperrors.ErrDuplicate, fmt.Sprintf("job %s already registered", job.ID))
	}

	seen := make(map[string]bool, len(job.Operations))
	for _, op := range job.Operations {
		if op.JobID != job.ID {
			return apperrors.Clone(apperrors.ErrValidation,
				fmt.Sprintf("operation %s declares job %s but is owned by %s", op.ID, op.JobID, job.ID))
		}
		if op.StartTime != nil || op.EndTime != nil || op.ResourceID != nil {
			return apperrors.Clone(apperrors.ErrValidation,
				fmt.Sprintf("operation %s must be unscheduled at registration", op.ID))
		}
		if seen[op.ID] {
			return apperrors.Clone(apperrors.ErrDuplicate,
				fmt.Sprintf("operation %s appears twice in job %s", op.ID, job.ID))
		}
		if _, exists := s.operations[op.ID]; exists {
			return apperrors.Clone(apperrors.ErrDuplicate,
				fmt.Sprintf("operation %s already registered", op.ID))
		}
		seen[op.ID] = true
	}

	s.jobs[job.ID] = job
	for _, op := range job.Operations {
		s.operations[op.ID] = op
	}
	s.logger.Debug("job registered",
		zap.String("schedule_id", s.ID),
		zap.String("job_id", job.ID),
		zap.Int("operations", len(job.Operations)))
	return nil
}

// AddResource registers the resource and initialises its timeline from
// the declared availability windows.
func (s *Schedule) AddResource(resource *model.Resource) error {
	if resource == nil {
		return apperrors.Clone(apperrors.ErrValidation, "resource is required")
	}
	if err := s.validate.Struct(resource); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation.Code,
			fmt.Sprintf("resource %s failed validation", resource.ID))
	}
	if _, exists := s.resources[resource.ID]; exists {
		return apperrors.Clone(apperrors.ErrDuplicate,
			fmt.Sprintf("resource %s already registered", resource.ID))
	}
	if err := resource.EnsureTimeline(); err != nil {
		return err
	}

	s.resources[resource.ID] = resource
	s.logger.Debug("resource registered",
		zap.String("schedule_id", s.ID),
		zap.String("resource_id", resource.ID),
		zap.String("resource_type", resource.Type))
	return nil
}

// Operation looks up an operation by id.
func (s *Schedule) Operation(id string) (*model.Operation, bool) {
	op, ok := s.operations[id]
	return op, ok
}

// Job looks up a job by id.
func (s *Schedule) Job(id string) (*model.Job, bool) {
	job, ok := s.jobs[id]
	return job, ok
}

// Resource looks up a resource by id.
func (s *Schedule) Resource(id string) (*model.Resource, bool) {
	res, ok := s.resources[id]
	return res, ok
}

// Operations returns every registered operation, ordered by id.
func (s *Schedule) Operations() []*model.Operation {
	out := make([]*model.Operation, 0, len(s.operations))
	for _, op := range s.operations {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Jobs returns every registered job, ordered by id.
func (s *Schedule) Jobs() []*model.Job {
	out := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resources returns every registered resource, ordered by id.
func (s *Schedule) Resources() []*model.Resource {
	out := make([]*model.Resource, 0, len(s.resources))
	for _, res := range s.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
