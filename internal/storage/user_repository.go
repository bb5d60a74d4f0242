package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/soltrees/api/internal/models"
)

// UserRepository handles user data persistence. All mutation paths are
// single-statement so concurrent requests never need external locking.
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureUser returns the user for the wallet address, creating the record if
// none exists. The ON CONFLICT guard makes creation first-write-wins: a
// duplicate create is a no-op even when two requests race, and existing
// fields are never overwritten.
func (r *UserRepository) EnsureUser(ctx context.Context, address string) (*models.User, error) {
	now := time.Now()

	query := `
		INSERT INTO users (id, user_address, handle, trees, clicks, background, created_at, updated_at)
		VALUES ($1, $2, '', '{}', 0, '', $3, $3)
		ON CONFLICT (user_address) DO NOTHING
	`

	if _, err := r.db.Pool().Exec(ctx, query, uuid.New().String(), address, now); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	return r.GetByAddress(ctx, address)
}

// GetByAddress retrieves a user by wallet address
func (r *UserRepository) GetByAddress(ctx context.Context, address string) (*models.User, error) {
	query := `
		SELECT id, user_address, handle, trees, clicks, background, created_at, updated_at
		FROM users
		WHERE user_address = $1
	`

	var user models.User
	err := r.db.Pool().QueryRow(ctx, query, address).Scan(
		&user.ID,
		&user.UserAddress,
		&user.Handle,
		&user.Trees,
		&user.Clicks,
		&user.Background,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", address, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Trees == nil {
		user.Trees = []string{}
	}

	return &user, nil
}

// LinkTree adds the tree id to the user's tree set and overwrites the stored
// handle. The CASE guard gives the append set semantics: re-adding an
// existing id is a no-op, and two concurrent adds of different ids both land
// because each is a single atomic UPDATE against the current row.
// The user must already exist; linking an unknown address is an error.
func (r *UserRepository) LinkTree(ctx context.Context, address, treeID, handle string) error {
	query := `
		UPDATE users
		SET trees = CASE WHEN trees @> ARRAY[$2]::text[] THEN trees ELSE array_append(trees, $2) END,
		    handle = $3,
		    updated_at = $4
		WHERE user_address = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, address, treeID, handle, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link tree: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", address, ErrNotFound)
	}

	return nil
}

// GetTrees returns the user's tree-id set. An unknown address yields an
// empty set, not an error.
func (r *UserRepository) GetTrees(ctx context.Context, address string) ([]string, error) {
	query := `SELECT trees FROM users WHERE user_address = $1`

	var trees []string
	err := r.db.Pool().QueryRow(ctx, query, address).Scan(&trees)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get user trees: %w", err)
	}

	if trees == nil {
		trees = []string{}
	}

	return trees, nil
}
