package command

import (
	"context"
	"fmt"

	"github.com/modbay/storefront/internal/user/domain"
	"github.com/modbay/storefront/pkg/auth"
)

// UpdateProfileCommand represents the command to update a user's own profile.
// Empty fields are left unchanged.
type UpdateProfileCommand struct {
	ID       uint
	Email    string
	Password string
	PixKey   string
}

// UpdateProfileHandler handles profile update command
type UpdateProfileHandler struct {
	repo domain.UserRepository
}

// NewUpdateProfileHandler creates a new update profile handler
func NewUpdateProfileHandler(repo domain.UserRepository) *UpdateProfileHandler {
	return &UpdateProfileHandler{repo: repo}
}

// Handle executes the update profile command
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*domain.User, error) {
	user, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if cmd.Email != "" && cmd.Email != user.Email {
		if existing, _ := h.repo.FindByEmail(ctx, cmd.Email); existing != nil {
			return nil, fmt.Errorf("email already exists")
		}
		user.Email = cmd.Email
	}

	if cmd.Password != "" {
		if len(cmd.Password) < 6 {
			return nil, fmt.Errorf("password must be at least 6 characters")
		}
		hashed, err := auth.HashPassword(cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hashed
	}

	if cmd.PixKey != "" {
		user.PixKey = cmd.PixKey
	}

	if err := h.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
