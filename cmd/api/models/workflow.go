package models

import (
	"time"

	"github.com/genomeai/platform/common/validation"
)

// DispatchTarget is the closed set of runner strategies a workflow can use
type DispatchTarget string

const (
	TargetNamedPipeline DispatchTarget = "named_pipeline"
	TargetGenericSmoke  DispatchTarget = "generic_smoke"
)

// Valid reports whether t is a known target
func (t DispatchTarget) Valid() bool {
	return t == TargetNamedPipeline || t == TargetGenericSmoke
}

// Workflow is an imported, immutable pipeline registration.
// Maps to: workflows table
type Workflow struct {
	ID       string                 `db:"id" json:"id"`
	Name     string                 `db:"name" json:"name"`
	Version  string                 `db:"version" json:"version"`
	Engine   string                 `db:"engine" json:"engine"`
	Repo     *string                `db:"repo" json:"repo"`
	Revision *string                `db:"revision" json:"revision"`
	GitSHA   *string                `db:"git_sha" json:"git_sha"`
	Lock     map[string]interface{} `db:"lock" json:"lock"`

	// Chosen at import; an empty target predates the column and is routed by name
	DispatchTarget  DispatchTarget         `db:"dispatch_target" json:"dispatch_target"`
	DispatchPayload map[string]interface{} `db:"dispatch_payload" json:"dispatch_payload"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Images returns the number of container images in the lock
func (w *Workflow) Images() int {
	return validation.CountImages(w.Lock)
}

// WorkflowSummary is the list representation
type WorkflowSummary struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Version        string         `json:"version"`
	GitSHA         *string        `json:"git_sha"`
	Images         int            `json:"images"`
	DispatchTarget DispatchTarget `json:"dispatch_target"`
}

// Summary projects a workflow into its list form
func (w *Workflow) Summary() WorkflowSummary {
	return WorkflowSummary{
		ID:             w.ID,
		Name:           w.Name,
		Version:        w.Version,
		GitSHA:         w.GitSHA,
		Images:         w.Images(),
		DispatchTarget: w.DispatchTarget,
	}
}
