package model

import (
	"github.com/adw-lab/schedcore/pkg/timeline"
)

// Resource is an exclusive, typed executor of operations with an optional
// availability calendar. It owns its timeline; timeline entries hold only
// operation ids, never copies of operation state.
type Resource struct {
	ID      string            `json:"id" validate:"required"`
	Type    string            `json:"type" validate:"required"`
	Name    string            `json:"name"`
	Windows []timeline.Window `json:"windows,omitempty"`

	tl *timeline.Timeline
}

// NewResource builds a resource and its timeline from the declared
// availability windows. Malformed or overlapping windows are rejected.
func NewResource(id, resourceType, name string, windows ...timeline.Window) (*Resource, error) {
	tl, err := timeline.New(windows)
	if err != nil {
		return nil, err
	}
	return &Resource{ID: id, Type: resourceType, Name: name, Windows: windows, tl: tl}, nil
}

// Timeline returns the resource's interval store, or nil when the
// resource has not been initialised via NewResource or EnsureTimeline.
func (r *Resource) Timeline() *timeline.Timeline {
	return r.tl
}

// EnsureTimeline builds the timeline from the Windows field for resources
// constructed as literals. It is a no-op when the timeline already exists.
func (r *Resource) EnsureTimeline() error {
	if r.tl != nil {
		return nil
	}
	tl, err := timeline.New(r.Windows)
	if err != nil {
		return err
	}
	r.tl = tl
	return nil
}
