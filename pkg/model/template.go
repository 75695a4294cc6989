package model

import "fmt"

// MetaBlocking marks a job instantiated from a blocking (no-wait)
// template; the Blocking constraint keys off it.
const MetaBlocking = "blocking"

// OperationTemplate defines a reusable operation within a job template.
// Precedence refers to template ids of sibling operations.
type OperationTemplate struct {
	TemplateID        string   `json:"template_id" validate:"required"`
	Duration          int64    `json:"duration" validate:"gt=0"`
	ResourceType      string   `json:"resource_type" validate:"required"`
	EligibleResources []string `json:"eligible_resources,omitempty"`
	Precedence        []string `json:"precedence,omitempty"`
	Metadata          Metadata `json:"metadata,omitempty"`
}

// JobTemplate is a reusable job definition that can be instantiated into
// concrete jobs with unique, namespaced operation ids.
type JobTemplate struct {
	TemplateID string              `json:"template_id" validate:"required"`
	Operations []OperationTemplate `json:"operations" validate:"dive"`
	Metadata   Metadata            `json:"metadata,omitempty"`
	Blocking   bool                `json:"blocking,omitempty"`
}

// Instantiate creates a concrete Job from the template. Operation ids are
// namespaced under the job id and template-local precedence references are
// remapped to the generated ids.
func (t *JobTemplate) Instantiate(instanceID string, jobID string) *Job {
	if jobID == "" {
		jobID = fmt.Sprintf("%s_%s", t.TemplateID, instanceID)
	}

	idMap := make(map[string]string, len(t.Operations))
	for _, op := range t.Operations {
		idMap[op.TemplateID] = fmt.Sprintf("%s_%s", jobID, op.TemplateID)
	}

	operations := make([]*Operation, 0, len(t.Operations))
	for _, op := range t.Operations {
		precedence := make([]string, 0, len(op.Precedence))
		for _, p := range op.Precedence {
			if mapped, ok := idMap[p]; ok {
				precedence = append(precedence, mapped)
			} else {
				precedence = append(precedence, p)
			}
		}
		operations = append(operations, &Operation{
			ID:                idMap[op.TemplateID],
			JobID:             jobID,
			Duration:          op.Duration,
			ResourceType:      op.ResourceType,
			EligibleResources: append([]string(nil), op.EligibleResources...),
			Precedence:        precedence,
			Metadata:          cloneMetadata(op.Metadata),
		})
	}

	meta := cloneMetadata(t.Metadata)
	if t.Blocking {
		if meta == nil {
			meta = Metadata{}
		}
		meta[MetaBlocking] = true
	}

	return &Job{ID: jobID, Operations: operations, Metadata: meta}
}

func cloneMetadata(m Metadata) Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
