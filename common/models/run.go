package models

import (
	"time"
)

// RunStatus represents the status of an analysis run
type RunStatus string

const (
	StatusQueued    RunStatus = "Queued"
	StatusRunning   RunStatus = "Running"
	StatusSucceeded RunStatus = "Succeeded"
	StatusFailed    RunStatus = "Failed"
)

// IsTerminal reports whether no further transition is allowed
func (s RunStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Run is one execution attempt of a workflow against a reference set and samples.
// Maps to: runs table
type Run struct {
	ID             string                 `db:"id" json:"id"`
	ProjectID      string                 `db:"project_id" json:"project_id"`
	WorkflowID     string                 `db:"workflow_id" json:"workflow_id"`
	ReferenceSetID string                 `db:"reference_set_id" json:"reference_set_id"`
	SampleIDs      []string               `db:"sample_ids" json:"sample_ids"`
	Params         map[string]interface{} `db:"params" json:"params"`
	ComputeProfile string                 `db:"compute_profile" json:"compute_profile"`

	// Set by the reconciler from the runner's response; nil until dispatch completes
	RunnerJobID *string `db:"runner_job_id" json:"runner_job_id"`

	Status    RunStatus `db:"status" json:"status"`
	Artifacts []string  `db:"artifacts" json:"artifacts"`

	CreatedBy  *string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// RunEvent is published on every persisted run transition
type RunEvent struct {
	RunID       string    `json:"run_id"`
	ProjectID   string    `json:"project_id"`
	Status      RunStatus `json:"status"`
	RunnerJobID *string   `json:"runner_job_id,omitempty"`
	Artifacts   []string  `json:"artifacts,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ActorID     *string   `json:"actor_id,omitempty"`
	At          time.Time `json:"at"`
}

// NewRunEvent snapshots a run into an event
func NewRunEvent(run *Run, reason string) RunEvent {
	return RunEvent{
		RunID:       run.ID,
		ProjectID:   run.ProjectID,
		Status:      run.Status,
		RunnerJobID: run.RunnerJobID,
		Artifacts:   run.Artifacts,
		Reason:      reason,
		ActorID:     run.CreatedBy,
		At:          time.Now().UTC(),
	}
}
