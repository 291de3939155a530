package models

import "time"

// Sample pairs two FASTQ datasets of one project.
// Maps to: samples table
type Sample struct {
	ID          string    `db:"id" json:"id"`
	ProjectID   string    `db:"project_id" json:"project_id"`
	Name        string    `db:"name" json:"name"`
	R1DatasetID string    `db:"r1_dataset_id" json:"r1_dataset_id"`
	R2DatasetID string    `db:"r2_dataset_id" json:"r2_dataset_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	// Joined from datasets on list
	R1URI string `db:"r1_uri" json:"r1_uri,omitempty"`
	R2URI string `db:"r2_uri" json:"r2_uri,omitempty"`
}
