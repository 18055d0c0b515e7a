package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/crucial707/tools-sys/internal/models"
	"github.com/crucial707/tools-sys/internal/repo"
)

// Identity is what a successful login proves.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// UserStore is the single read the verifier needs. *repo.UserRepo satisfies it.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Verifier checks submitted credentials against stored digests.
type Verifier struct {
	store  UserStore
	hasher Hasher
}

func NewVerifier(store UserStore, hasher Hasher) *Verifier {
	return &Verifier{store: store, hasher: hasher}
}

// Verify returns ErrInvalidCredentials for an unknown user and for a wrong
// password alike. Store failures are returned wrapped and are not credential errors.
func (v *Verifier) Verify(ctx context.Context, username, password string) (Identity, error) {
	user, err := v.store.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	if !v.hasher.Matches(user.PasswordHash, password) {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{ID: user.ID, Username: user.Username}, nil
}
