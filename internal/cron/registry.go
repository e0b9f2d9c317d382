package cron

import (
	"context"
	"fmt"
)

// Job is one named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a cron worker executes each tick, in registration
// order.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry returns an empty job registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds a job. Duplicate names are rejected so two jobs can never
// fight over one lock.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("job name is empty")
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs in order.
func (r *Registry) Jobs() []Job {
	return r.jobs
}
