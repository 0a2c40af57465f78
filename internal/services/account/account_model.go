package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered identity. GitHubToken is set once the user links
// their GitHub account and is never exposed over the API.
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	GitHubToken  *string   `db:"github_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
