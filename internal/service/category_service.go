package service

import (
	"context"

	apperrors "github.com/soltrees/api/internal/errors"
	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/payment"
)

// CategoryService manages the user-contributed category list. Categories are
// append-only; the built-in keys live in code and never appear here.
type CategoryService struct {
	categories CategoryStore
	logger     *logging.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(categories CategoryStore, logger *logging.Logger) *CategoryService {
	return &CategoryService{categories: categories, logger: logger}
}

// CreateCategoryInput represents a category creation request
type CreateCategoryInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	CreatedBy   string `json:"createdBy"`
}

// Create stores a new custom category and returns it
func (s *CategoryService) Create(ctx context.Context, input *CreateCategoryInput) (*models.Category, error) {
	if input.Title == "" {
		return nil, apperrors.NewValidationError("title", "title is required")
	}
	if err := payment.ValidateAddress(input.CreatedBy); err != nil {
		return nil, apperrors.NewInvalidAddressError(input.CreatedBy)
	}

	category := &models.Category{
		Title:       input.Title,
		Description: input.Description,
		Color:       input.Color,
		CreatedBy:   input.CreatedBy,
	}

	if _, err := s.categories.Insert(ctx, category); err != nil {
		return nil, apperrors.NewDatabaseError("insert category", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"categoryId": category.ID,
		"title":      category.Title,
	}).Info("Category created")

	return category, nil
}

// List returns all custom categories, oldest first
func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list categories", err)
	}

	return categories, nil
}
