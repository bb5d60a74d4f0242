package service

import (
	"context"
	"time"

	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/storage"
)

// TreeStore is the tree persistence surface the services depend on.
type TreeStore interface {
	Insert(ctx context.Context, tree *models.Tree) (string, error)
	GetByID(ctx context.Context, id string) (*models.Tree, error)
	ListAll(ctx context.Context) ([]*models.Tree, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.Tree, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Tree, error)
	Leaderboard(ctx context.Context, limit int) ([]*models.Tree, error)
	IncrementClicks(ctx context.Context, id string) (int64, error)
}

// UserStore is the user persistence surface the services depend on.
type UserStore interface {
	EnsureUser(ctx context.Context, address string) (*models.User, error)
	GetByAddress(ctx context.Context, address string) (*models.User, error)
	LinkTree(ctx context.Context, address, treeID, handle string) error
	GetTrees(ctx context.Context, address string) ([]string, error)
}

// CategoryStore is the category persistence surface the services depend on.
type CategoryStore interface {
	Insert(ctx context.Context, category *models.Category) (string, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
}

// ListingCache caches tree listings. A nil ListingCache disables caching.
type ListingCache interface {
	GetAll(ctx context.Context) ([]*models.Tree, bool)
	SetAll(ctx context.Context, trees []*models.Tree) error
	GetByCategory(ctx context.Context, category string) ([]*models.Tree, bool)
	SetByCategory(ctx context.Context, category string, trees []*models.Tree) error
	GetLeaderboard(ctx context.Context) ([]*models.Tree, bool)
	SetLeaderboard(ctx context.Context, trees []*models.Tree) error
	InvalidatePlacement(ctx context.Context, category string) error
}

// ClickRecorder appends click events to the analytics store and answers
// windowed count queries over them. A nil ClickRecorder disables event
// collection and the recent-activity leaderboard; the catalog counter is the
// source of truth for totals either way.
type ClickRecorder interface {
	Insert(ctx context.Context, treeID, userAddress string, clickedAt time.Time) error
	CountSince(ctx context.Context, since time.Time, limit int) ([]storage.TreeClicks, error)
}
