package repository

import (
	"context"

	"github.com/vehtrack/vehtrack/internal/model"
)

// UserRepository provides access to user profiles.
type UserRepository interface {
	// Create inserts a new user profile.
	Create(ctx context.Context, u *model.User) error
	// GetByEmail loads the user owned by the given account email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns user profiles ordered by id.
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	// ListByFleetIDs returns user profiles belonging to any of the fleets.
	ListByFleetIDs(ctx context.Context, fleetIDs []int64, limit, offset int) ([]model.User, error)
	// UpdateUsername renames the user owned by the given account email.
	UpdateUsername(ctx context.Context, email, username string) error
}
