package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectRepo handles database operations for projects. Every read and write
// is filtered by (id, owner): a project owned by someone else is
// indistinguishable from a nonexistent one.
type ProjectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create creates a new project owned by ownerID
func (r *ProjectRepo) Create(ctx context.Context, ownerID uuid.UUID, req *CreateProjectRequest) (*Project, error) {
	query := `
        INSERT INTO projects (user_id, name, content)
        VALUES ($1, $2, $3)
        RETURNING id, user_id, name, content, created_at, updated_at
    `

	var project Project
	err := r.db.GetContext(ctx, &project, query, ownerID, req.Name, req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// GetByID retrieves a project by ID, scoped to its owner
func (r *ProjectRepo) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*Project, error) {
	query := `
        SELECT id, user_id, name, content, created_at, updated_at
        FROM projects
        WHERE id = $1 AND user_id = $2
    `

	var project Project
	err := r.db.GetContext(ctx, &project, query, id, ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// List retrieves the owner's projects, most recently updated first
func (r *ProjectRepo) List(ctx context.Context, ownerID uuid.UUID) ([]*Summary, error) {
	query := `
        SELECT id, name, created_at, updated_at
        FROM projects
        WHERE user_id = $1
        ORDER BY updated_at DESC
    `

	projects := []*Summary{}
	err := r.db.SelectContext(ctx, &projects, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update updates project fields and bumps updated_at
func (r *ProjectRepo) Update(ctx context.Context, id, ownerID uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	setParts := []string{}
	args := []interface{}{}

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)+1))
		args = append(args, *req.Name)
	}

	if req.Content != nil {
		setParts = append(setParts, fmt.Sprintf("content = $%d", len(args)+1))
		args = append(args, *req.Content)
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id, ownerID)
	}

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, id, ownerID)

	query := fmt.Sprintf(`
        UPDATE projects
        SET %s
        WHERE id = $%d AND user_id = $%d
        RETURNING id, user_id, name, content, created_at, updated_at
    `, strings.Join(setParts, ", "), len(args)-1, len(args))

	var project Project
	err := r.db.GetContext(ctx, &project, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return &project, nil
}
