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

const treeColumns = `id, position_x, position_y, user_address, handle, profile_pic_url,
	description, link, size, shape, category, clicks, created_at`

// TreeRepository owns tree records. Trees are immutable after insert except
// for the click counter, which only moves through IncrementClicks.
type TreeRepository struct {
	db *PostgresDB
}

// NewTreeRepository creates a new tree repository
func NewTreeRepository(db *PostgresDB) *TreeRepository {
	return &TreeRepository{db: db}
}

// Insert stores a new tree with a server-assigned id and a click counter of
// zero, and returns the id. Payment validation is the placement service's
// job; the repository only persists.
func (r *TreeRepository) Insert(ctx context.Context, tree *models.Tree) (string, error) {
	if tree.ID == "" {
		tree.ID = uuid.New().String()
	}
	tree.Clicks = 0
	tree.CreatedAt = time.Now()

	query := `
		INSERT INTO trees (id, position_x, position_y, user_address, handle, profile_pic_url,
			description, link, size, shape, category, clicks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tree.ID,
		tree.PositionX,
		tree.PositionY,
		tree.UserAddress,
		tree.Handle,
		tree.ProfilePicURL,
		tree.Description,
		tree.Link,
		tree.Size,
		tree.Shape,
		tree.Category,
		tree.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert tree: %w", err)
	}

	return tree.ID, nil
}

// GetByID retrieves a tree by id
func (r *TreeRepository) GetByID(ctx context.Context, id string) (*models.Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees WHERE id = $1`

	tree, err := scanTree(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tree %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	return tree, nil
}

// ListAll returns an unordered snapshot of every tree
func (r *TreeRepository) ListAll(ctx context.Context) ([]*models.Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees`
	return r.list(ctx, query)
}

// ListByIDs returns the trees whose ids appear in the given set
func (r *TreeRepository) ListByIDs(ctx context.Context, ids []string) ([]*models.Tree, error) {
	if len(ids) == 0 {
		return []*models.Tree{}, nil
	}
	query := `SELECT ` + treeColumns + ` FROM trees WHERE id = ANY($1)`
	return r.list(ctx, query, ids)
}

// ListByCategory returns the trees whose stored category equals the given
// id. An unknown category yields an empty slice, not an error.
func (r *TreeRepository) ListByCategory(ctx context.Context, category string) ([]*models.Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees WHERE category = $1`
	return r.list(ctx, query, category)
}

// Leaderboard returns the top trees by click count
func (r *TreeRepository) Leaderboard(ctx context.Context, limit int) ([]*models.Tree, error) {
	query := `SELECT ` + treeColumns + ` FROM trees ORDER BY clicks DESC, created_at ASC LIMIT $1`
	return r.list(ctx, query, limit)
}

// IncrementClicks atomically bumps the click counter and returns the new
// value. Because the read-modify-write happens inside one UPDATE, two
// concurrent increments always observe distinct successive counts.
func (r *TreeRepository) IncrementClicks(ctx context.Context, id string) (int64, error) {
	query := `UPDATE trees SET clicks = clicks + 1 WHERE id = $1 RETURNING clicks`

	var clicks int64
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(&clicks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("tree %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to increment clicks: %w", err)
	}

	return clicks, nil
}

func (r *TreeRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Tree, error) {
	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	defer rows.Close()

	trees := []*models.Tree{}
	for rows.Next() {
		tree, err := scanTree(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tree: %w", err)
		}
		trees = append(trees, tree)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trees: %w", err)
	}

	return trees, nil
}

func scanTree(row pgx.Row) (*models.Tree, error) {
	var tree models.Tree
	err := row.Scan(
		&tree.ID,
		&tree.PositionX,
		&tree.PositionY,
		&tree.UserAddress,
		&tree.Handle,
		&tree.ProfilePicURL,
		&tree.Description,
		&tree.Link,
		&tree.Size,
		&tree.Shape,
		&tree.Category,
		&tree.Clicks,
		&tree.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tree, nil
}
