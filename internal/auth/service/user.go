package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cognify-learn/cognify/internal/auth/domain"
	"github.com/cognify-learn/cognify/internal/auth/store"
)

var ErrUnknownRole = errors.New("unknown_role")

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// SetRoles replaces the roles of a user. Unknown role names are rejected.
func (s *UserService) SetRoles(ctx context.Context, userID string, roles []string) error {
	for _, r := range roles {
		if !domain.IsKnownRole(r) {
			return fmt.Errorf("%w: %q", ErrUnknownRole, r)
		}
	}
	if len(roles) == 0 {
		roles = domain.DefaultRoles()
	}
	return s.Store.Users().UpdateRoles(ctx, userID, roles)
}
