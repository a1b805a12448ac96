package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/crypto"
	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// UserService manages human profiles. ADMIN sees everyone, FLEET_ADMIN the
// members of its owned subtree, USER only itself.
type UserService interface {
	List(ctx context.Context, ident authz.Identity, limit, offset int) ([]model.User, error)
	Get(ctx context.Context, ident authz.Identity, email string) (*model.User, error)
	// Create provisions an account with the given role plus its user profile.
	Create(ctx context.Context, ident authz.Identity, email, password, username string, role model.Role) error
	UpdateUsername(ctx context.Context, ident authz.Identity, email, username string) error
	// Delete removes the account behind the profile; the profile row follows
	// by cascade.
	Delete(ctx context.Context, ident authz.Identity, email string) error
}

type UserServiceImpl struct {
	guard      *authz.Guard
	accounts   repository.AccountRepository
	users      repository.UserRepository
	fleets     repository.FleetRepository
	bcryptCost int
}

// NewUserService constructs UserService with required dependencies.
func NewUserService(guard *authz.Guard, accounts repository.AccountRepository,
	users repository.UserRepository, fleets repository.FleetRepository, bcryptCost int) *UserServiceImpl {
	return &UserServiceImpl{guard: guard, accounts: accounts, users: users, fleets: fleets, bcryptCost: bcryptCost}
}

// List returns the profiles visible to the caller.
func (s *UserServiceImpl) List(ctx context.Context, ident authz.Identity, limit, offset int) ([]model.User, error) {
	switch ident.Role {
	case model.RoleAdmin:
		return s.users.List(ctx, limit, offset)
	case model.RoleFleetAdmin:
		visible, err := s.guard.VisibleFleetIDs(ctx, ident)
		if err != nil {
			return nil, err
		}
		if len(visible) == 0 {
			return nil, nil
		}
		return s.users.ListByFleetIDs(ctx, visible, limit, offset)
	case model.RoleUser:
		u, err := s.users.GetByEmail(ctx, ident.Email)
		if err != nil {
			return nil, err
		}
		return []model.User{*u}, nil
	}
	return nil, errs.ErrForbidden
}

// Get loads one profile if the caller may see it.
func (s *UserServiceImpl) Get(ctx context.Context, ident authz.Identity, email string) (*model.User, error) {
	if err := s.canTouch(ctx, ident, email); err != nil {
		return nil, err
	}
	return s.users.GetByEmail(ctx, email)
}

// Create provisions a new account plus profile. ADMIN only; the role must be
// a human one.
func (s *UserServiceImpl) Create(ctx context.Context, ident authz.Identity, email, password, username string, role model.Role) error {
	if ident.Role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	if role != model.RoleUser && role != model.RoleFleetAdmin {
		return fmt.Errorf("role %s cannot own a user profile", role)
	}
	if !model.ValidName(username) {
		return fmt.Errorf("invalid username %q", username)
	}
	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	a := &model.Account{Email: email, PwdHash: hash, Role: role, IsActive: true}
	if err := s.accounts.Create(ctx, a); err != nil {
		return err
	}
	return s.users.Create(ctx, &model.User{Username: username, AccountEmail: email})
}

// UpdateUsername renames a profile the caller may touch.
func (s *UserServiceImpl) UpdateUsername(ctx context.Context, ident authz.Identity, email, username string) error {
	if !model.ValidName(username) {
		return fmt.Errorf("invalid username %q", username)
	}
	if err := s.canTouch(ctx, ident, email); err != nil {
		return err
	}
	return s.users.UpdateUsername(ctx, email, username)
}

// Delete removes the account behind the profile. ADMIN only; DEVICE accounts
// go through the device service instead.
func (s *UserServiceImpl) Delete(ctx context.Context, ident authz.Identity, email string) error {
	if ident.Role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a.Role == model.RoleDevice {
		return errs.ErrNotFound
	}
	return s.accounts.DeleteByEmailAndRole(ctx, email, a.Role)
}

// canTouch decides read/update access to a profile: ADMIN any, everyone their
// own, FLEET_ADMIN additionally any member of its owned subtree.
func (s *UserServiceImpl) canTouch(ctx context.Context, ident authz.Identity, email string) error {
	switch ident.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleUser, model.RoleFleetAdmin:
		if ident.Email == email {
			return nil
		}
		if ident.Role == model.RoleUser {
			return errs.ErrForbidden
		}
	default:
		return errs.ErrForbidden
	}

	visible, err := s.guard.VisibleFleetIDs(ctx, ident)
	if err != nil {
		return err
	}
	member, err := s.fleets.MemberFleetIDs(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrNotOwned
		}
		return err
	}
	for _, m := range member {
		for _, v := range visible {
			if m == v {
				return nil
			}
		}
	}
	return errs.ErrNotOwned
}
