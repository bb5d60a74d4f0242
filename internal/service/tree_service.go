package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/soltrees/api/internal/errors"
	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/payment"
	"github.com/soltrees/api/internal/storage"
)

// DefaultLeaderboardSize is the leaderboard length served when the client
// does not ask for a specific one.
const DefaultLeaderboardSize = 10

// MaxLeaderboardSize caps client-requested leaderboard lengths.
const MaxLeaderboardSize = 100

// TreeService serves the read side of the forest: listings, single trees,
// per-user trees, clicks and the leaderboard. Listings go through the Redis
// cache when one is wired; click increments always hit the catalog directly.
type TreeService struct {
	trees  TreeStore
	users  UserStore
	cache  ListingCache
	clicks ClickRecorder
	logger *logging.Logger
}

// NewTreeService creates a new tree service. cache and clicks may be nil.
func NewTreeService(trees TreeStore, users UserStore, cache ListingCache, clicks ClickRecorder, logger *logging.Logger) *TreeService {
	return &TreeService{
		trees:  trees,
		users:  users,
		cache:  cache,
		clicks: clicks,
		logger: logger,
	}
}

// ListAll returns a snapshot of every tree in the forest
func (s *TreeService) ListAll(ctx context.Context) ([]*models.Tree, error) {
	if s.cache != nil {
		if trees, ok := s.cache.GetAll(ctx); ok {
			return trees, nil
		}
	}

	trees, err := s.trees.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list trees", err)
	}

	if s.cache != nil {
		if err := s.cache.SetAll(ctx, trees); err != nil {
			s.logger.WithError(err).Warn("Failed to cache tree listing")
		}
	}

	return trees, nil
}

// ListByCategory returns the trees in the given category. Unknown categories
// yield an empty list.
func (s *TreeService) ListByCategory(ctx context.Context, category string) ([]*models.Tree, error) {
	if s.cache != nil {
		if trees, ok := s.cache.GetByCategory(ctx, category); ok {
			return trees, nil
		}
	}

	trees, err := s.trees.ListByCategory(ctx, category)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list trees by category", err)
	}

	if s.cache != nil {
		if err := s.cache.SetByCategory(ctx, category, trees); err != nil {
			s.logger.WithError(err).Warn("Failed to cache category listing")
		}
	}

	return trees, nil
}

// GetByID returns a single tree
func (s *TreeService) GetByID(ctx context.Context, id string) (*models.Tree, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewValidationError("id", "not a valid tree id")
	}

	tree, err := s.trees.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("tree", id)
		}
		return nil, apperrors.NewDatabaseError("get tree", err)
	}

	return tree, nil
}

// GetUserTrees returns the trees placed by the wallet address. An address
// with no user record owns no trees, so it yields an empty list rather than
// an error.
func (s *TreeService) GetUserTrees(ctx context.Context, address string) ([]*models.Tree, error) {
	if err := payment.ValidateAddress(address); err != nil {
		return nil, apperrors.NewInvalidAddressError(address)
	}

	ids, err := s.users.GetTrees(ctx, address)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user trees", err)
	}

	trees, err := s.trees.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list user trees", err)
	}

	return trees, nil
}

// Click bumps the tree's click counter and returns the new count. The
// increment is atomic in the catalog; the analytics event append afterwards
// is best-effort and never fails the click.
func (s *TreeService) Click(ctx context.Context, id string, viewerAddress string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, apperrors.NewValidationError("id", "not a valid tree id")
	}

	clicks, err := s.trees.IncrementClicks(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, apperrors.NewNotFoundError("tree", id)
		}
		return 0, apperrors.NewDatabaseError("increment clicks", err)
	}

	if s.clicks != nil {
		if err := s.clicks.Insert(ctx, id, viewerAddress, time.Now()); err != nil {
			s.logger.WithError(err).WithField("treeId", id).Warn("Failed to record click event")
		}
	}

	return clicks, nil
}

// Leaderboard returns the top trees by click count. limit <= 0 selects the
// default size; oversized requests are capped.
func (s *TreeService) Leaderboard(ctx context.Context, limit int) ([]*models.Tree, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}

	cacheable := limit == DefaultLeaderboardSize
	if cacheable && s.cache != nil {
		if trees, ok := s.cache.GetLeaderboard(ctx); ok {
			return trees, nil
		}
	}

	trees, err := s.trees.Leaderboard(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("leaderboard", err)
	}

	if cacheable && s.cache != nil {
		if err := s.cache.SetLeaderboard(ctx, trees); err != nil {
			s.logger.WithError(err).Warn("Failed to cache leaderboard")
		}
	}

	return trees, nil
}

// RecentLeaderboard returns the trees with the most clicks recorded inside
// the trailing window, most clicked first, from the analytics event stream.
// Without a click recorder there are no events to window over, so the
// all-time leaderboard is served instead.
func (s *TreeService) RecentLeaderboard(ctx context.Context, window time.Duration, limit int) ([]*models.Tree, error) {
	if window <= 0 {
		return nil, apperrors.NewValidationError("window", "must be a positive duration")
	}
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}

	if s.clicks == nil {
		return s.Leaderboard(ctx, limit)
	}

	counts, err := s.clicks.CountSince(ctx, time.Now().Add(-window), limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count recent clicks", err)
	}

	ids := make([]string, len(counts))
	for i, count := range counts {
		ids[i] = count.TreeID
	}

	trees, err := s.trees.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list leaderboard trees", err)
	}

	byID := make(map[string]*models.Tree, len(trees))
	for _, tree := range trees {
		byID[tree.ID] = tree
	}

	// Keep the count ordering; ids without a tree row are skipped.
	ordered := []*models.Tree{}
	for _, count := range counts {
		if tree, ok := byID[count.TreeID]; ok {
			ordered = append(ordered, tree)
		}
	}

	return ordered, nil
}
