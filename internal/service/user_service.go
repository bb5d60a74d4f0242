package service

import (
	"context"
	"errors"

	apperrors "github.com/soltrees/api/internal/errors"
	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/payment"
	"github.com/soltrees/api/internal/storage"
)

// UserService handles wallet identity records. Creation is idempotent:
// the same address can be submitted any number of times and exactly one
// record exists afterwards.
type UserService struct {
	users  UserStore
	logger *logging.Logger
}

// NewUserService creates a new user service
func NewUserService(users UserStore, logger *logging.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// CreateUser ensures a user record exists for the address and returns it.
// An existing record is returned untouched.
func (s *UserService) CreateUser(ctx context.Context, address string) (*models.User, error) {
	if err := payment.ValidateAddress(address); err != nil {
		return nil, apperrors.NewInvalidAddressError(address)
	}

	user, err := s.users.EnsureUser(ctx, address)
	if err != nil {
		return nil, apperrors.NewDatabaseError("ensure user", err)
	}

	return user, nil
}

// GetUser returns the user record for the address
func (s *UserService) GetUser(ctx context.Context, address string) (*models.User, error) {
	if err := payment.ValidateAddress(address); err != nil {
		return nil, apperrors.NewInvalidAddressError(address)
	}

	user, err := s.users.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user", address)
		}
		return nil, apperrors.NewDatabaseError("get user", err)
	}

	return user, nil
}
