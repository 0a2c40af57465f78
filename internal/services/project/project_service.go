package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ProjectService contains business logic for projects
type ProjectService struct {
	repo *ProjectRepo
}

// NewProjectService constructs a new ProjectService
func NewProjectService(repo *ProjectRepo) *ProjectService {
	return &ProjectService{repo: repo}
}

// Create registers a new project for the owner
func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, req *CreateProjectRequest) (*Project, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	project, err := s.repo.Create(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetByID fetches an owned project by its identifier
func (s *ProjectService) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// List returns the owner's projects ordered by most recent update
func (s *ProjectService) List(ctx context.Context, ownerID uuid.UUID) ([]*Summary, error) {
	projects, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update modifies mutable project fields
func (s *ProjectService) Update(ctx context.Context, id, ownerID uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	project, err := s.repo.Update(ctx, id, ownerID, req)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}
