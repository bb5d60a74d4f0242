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

// CategoryRepository stores user-created categories. The collection is
// append-only: there is no update or delete path.
type CategoryRepository struct {
	db *PostgresDB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *PostgresDB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Insert stores a new category with a server-assigned id
func (r *CategoryRepository) Insert(ctx context.Context, category *models.Category) (string, error) {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	category.CreatedAt = time.Now()

	query := `
		INSERT INTO categories (id, title, description, color, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		category.ID,
		category.Title,
		category.Description,
		category.Color,
		category.CreatedBy,
		category.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert category: %w", err)
	}

	return category.ID, nil
}

// GetByID retrieves a category by id
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	query := `
		SELECT id, title, description, color, created_by, created_at
		FROM categories
		WHERE id = $1
	`

	var category models.Category
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Title,
		&category.Description,
		&category.Color,
		&category.CreatedBy,
		&category.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &category, nil
}

// List returns all custom categories, oldest first
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	query := `
		SELECT id, title, description, color, created_by, created_at
		FROM categories
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		var category models.Category
		err := rows.Scan(
			&category.ID,
			&category.Title,
			&category.Description,
			&category.Color,
			&category.CreatedBy,
			&category.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
