package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/db"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/jackc/pgx/v5"
)

// ProjectRepository handles database operations for projects and their members
type ProjectRepository struct {
	db *db.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(database *db.DB) *ProjectRepository {
	return &ProjectRepository{db: database}
}

// Create inserts a project and makes ownerID its Admin in one transaction
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project, ownerID string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO projects (id, name, created_at) VALUES ($1, $2, $3)`,
			project.ID, project.Name, project.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO project_members (user_id, project_id, role) VALUES ($1, $2, $3)`,
			ownerID, project.ID, models.RoleAdmin,
		)
		if err != nil {
			return fmt.Errorf("failed to add project owner: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a project by id
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	p := &models.Project{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", commonrepo.Translate(err))
	}
	return p, nil
}

// List returns every project, newest first
func (r *ProjectRepository) List(ctx context.Context) ([]*models.Project, error) {
	return r.list(ctx, `SELECT id, name, created_at FROM projects ORDER BY created_at DESC`)
}

// ListForUser returns the projects userID is a member of, newest first
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT p.id, p.name, p.created_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *ProjectRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Rename updates a project's name
func (r *ProjectRepository) Rename(ctx context.Context, id, name string) (*models.Project, error) {
	p := &models.Project{}
	err := r.db.QueryRow(ctx,
		`UPDATE projects SET name = $2 WHERE id = $1 RETURNING id, name, created_at`, id, name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", commonrepo.Translate(err))
	}
	return p, nil
}

// Delete removes a project; members, datasets, samples and runs cascade
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return commonrepo.ErrNotFound
	}
	return nil
}

// MemberRole returns userID's role in projectID; ok is false for non-members
func (r *ProjectRepository) MemberRole(ctx context.Context, projectID, userID string) (models.Role, bool, error) {
	var role models.Role
	err := r.db.QueryRow(ctx,
		`SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get member role: %w", err)
	}
	return role, true, nil
}

// ListMembers returns a project's members with their usernames
func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]*models.ProjectMember, error) {
	query := `
		SELECT m.user_id, m.project_id, u.username, m.role
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY u.username
	`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.ProjectMember, 0)
	for rows.Next() {
		m := &models.ProjectMember{}
		if err := rows.Scan(&m.UserID, &m.ProjectID, &m.Username, &m.Role); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpsertMember adds a member or changes their role
func (r *ProjectRepository) UpsertMember(ctx context.Context, projectID, userID string, role models.Role) error {
	query := `
		INSERT INTO project_members (user_id, project_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, project_id) DO UPDATE SET role = EXCLUDED.role
	`
	if _, err := r.db.Exec(ctx, query, userID, projectID, role); err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership; removing a non-member is not an error
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}
