package models

import "time"

// Project groups datasets, samples and runs under one membership list.
// Maps to: projects table
type Project struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProjectMember is a user's role inside one project.
// Maps to: project_members table (username joined from users)
type ProjectMember struct {
	UserID    string `db:"user_id" json:"user_id"`
	ProjectID string `db:"project_id" json:"project_id"`
	Username  string `db:"username" json:"username"`
	Role      Role   `db:"role" json:"role"`
}
