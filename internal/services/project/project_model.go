package project

import (
	"time"

	"github.com/google/uuid"
)

// Project is a named, owner-scoped persisted content blob
type Project struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"user_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Content   Content   `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Summary is the list view; content is omitted
type Summary struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateProjectRequest captures payload for creating a project
type CreateProjectRequest struct {
	Name    string  `json:"name"`
	Content Content `json:"content"`
}

// UpdateProjectRequest captures payload for updating a project
type UpdateProjectRequest struct {
	Name    *string  `json:"name,omitempty"`
	Content *Content `json:"content,omitempty"`
}
