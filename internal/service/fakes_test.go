package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/storage"
)

// Well-known 32-byte base58 addresses used as test wallets.
const (
	addrAlice = "So11111111111111111111111111111111111111112"
	addrBob   = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

func testLogger() *logging.Logger {
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	logger.SetOutput(io.Discard)
	return logger
}

// memTreeStore is an in-memory TreeStore mirroring the repository's
// semantics: server-assigned ids, clicks start at zero, atomic increments.
type memTreeStore struct {
	mu    sync.Mutex
	trees map[string]*models.Tree
	calls map[string]int
}

func newMemTreeStore() *memTreeStore {
	return &memTreeStore{trees: make(map[string]*models.Tree), calls: make(map[string]int)}
}

func (s *memTreeStore) Insert(ctx context.Context, tree *models.Tree) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Insert"]++

	if tree.ID == "" {
		tree.ID = uuid.New().String()
	}
	tree.Clicks = 0
	tree.CreatedAt = time.Now()

	stored := *tree
	s.trees[tree.ID] = &stored
	return tree.ID, nil
}

func (s *memTreeStore) GetByID(ctx context.Context, id string) (*models.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.trees[id]
	if !ok {
		return nil, fmt.Errorf("tree %s: %w", id, storage.ErrNotFound)
	}
	copied := *tree
	return &copied, nil
}

func (s *memTreeStore) ListAll(ctx context.Context) ([]*models.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListAll"]++

	out := []*models.Tree{}
	for _, tree := range s.trees {
		copied := *tree
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memTreeStore) ListByIDs(ctx context.Context, ids []string) ([]*models.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.Tree{}
	for _, id := range ids {
		if tree, ok := s.trees[id]; ok {
			copied := *tree
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memTreeStore) ListByCategory(ctx context.Context, category string) ([]*models.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListByCategory"]++

	out := []*models.Tree{}
	for _, tree := range s.trees {
		if tree.Category == category {
			copied := *tree
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memTreeStore) Leaderboard(ctx context.Context, limit int) ([]*models.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Leaderboard"]++

	out := []*models.Tree{}
	for _, tree := range s.trees {
		copied := *tree
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clicks != out[j].Clicks {
			return out[i].Clicks > out[j].Clicks
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memTreeStore) IncrementClicks(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.trees[id]
	if !ok {
		return 0, fmt.Errorf("tree %s: %w", id, storage.ErrNotFound)
	}
	tree.Clicks++
	return tree.Clicks, nil
}

func (s *memTreeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trees)
}

// memUserStore is an in-memory UserStore with the same first-write-wins and
// set-add semantics as the Postgres repository.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (s *memUserStore) EnsureUser(ctx context.Context, address string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[address]; ok {
		copied := *user
		return &copied, nil
	}

	now := time.Now()
	user := &models.User{
		ID:          uuid.New().String(),
		UserAddress: address,
		Trees:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.users[address] = user
	copied := *user
	return &copied, nil
}

func (s *memUserStore) GetByAddress(ctx context.Context, address string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[address]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", address, storage.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (s *memUserStore) LinkTree(ctx context.Context, address, treeID, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[address]
	if !ok {
		return fmt.Errorf("user %s: %w", address, storage.ErrNotFound)
	}

	for _, id := range user.Trees {
		if id == treeID {
			user.Handle = handle
			return nil
		}
	}
	user.Trees = append(user.Trees, treeID)
	user.Handle = handle
	user.UpdatedAt = time.Now()
	return nil
}

func (s *memUserStore) GetTrees(ctx context.Context, address string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[address]
	if !ok {
		return []string{}, nil
	}
	out := make([]string, len(user.Trees))
	copy(out, user.Trees)
	return out, nil
}

func (s *memUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// memCategoryStore is an in-memory CategoryStore.
type memCategoryStore struct {
	mu         sync.Mutex
	categories []*models.Category
}

func newMemCategoryStore() *memCategoryStore {
	return &memCategoryStore{}
}

func (s *memCategoryStore) Insert(ctx context.Context, category *models.Category) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	category.CreatedAt = time.Now()
	copied := *category
	s.categories = append(s.categories, &copied)
	return category.ID, nil
}

func (s *memCategoryStore) GetByID(ctx context.Context, id string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, category := range s.categories {
		if category.ID == id {
			copied := *category
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
}

func (s *memCategoryStore) List(ctx context.Context) ([]*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Category, len(s.categories))
	for i, category := range s.categories {
		copied := *category
		out[i] = &copied
	}
	return out, nil
}

// fakeVerifier records WasPaid calls and returns a configured verdict.
type fakeVerifier struct {
	mu      sync.Mutex
	paid    bool
	err     error
	calls   int
	lastArg decimal.Decimal
}

func (v *fakeVerifier) WasPaid(ctx context.Context, senderAddress string, minimumAmount decimal.Decimal) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	v.lastArg = minimumAmount
	return v.paid, v.err
}

func (v *fakeVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// fakeAvatar returns a fixed URL for every handle.
type fakeAvatar struct {
	url string
}

func (a *fakeAvatar) Resolve(ctx context.Context, handle string) string {
	return a.url
}

// memCache is an in-memory ListingCache that counts hits and misses.
type memCache struct {
	mu          sync.Mutex
	all         []*models.Tree
	byCategory  map[string][]*models.Tree
	leaderboard []*models.Tree
	hasAll      bool
	hasBoard    bool
}

func newMemCache() *memCache {
	return &memCache{byCategory: make(map[string][]*models.Tree)}
}

func (c *memCache) GetAll(ctx context.Context) ([]*models.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.all, c.hasAll
}

func (c *memCache) SetAll(ctx context.Context, trees []*models.Tree) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all, c.hasAll = trees, true
	return nil
}

func (c *memCache) GetByCategory(ctx context.Context, category string) ([]*models.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	trees, ok := c.byCategory[category]
	return trees, ok
}

func (c *memCache) SetByCategory(ctx context.Context, category string, trees []*models.Tree) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byCategory[category] = trees
	return nil
}

func (c *memCache) GetLeaderboard(ctx context.Context) ([]*models.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaderboard, c.hasBoard
}

func (c *memCache) SetLeaderboard(ctx context.Context, trees []*models.Tree) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderboard, c.hasBoard = trees, true
	return nil
}

func (c *memCache) InvalidatePlacement(ctx context.Context, category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all, c.hasAll = nil, false
	delete(c.byCategory, category)
	return nil
}

// fakeRecorder records click events, optionally failing every call, and
// serves canned windowed counts.
type fakeRecorder struct {
	mu        sync.Mutex
	events    []string
	err       error
	counts    []storage.TreeClicks
	lastSince time.Time
	lastLimit int
}

func (r *fakeRecorder) Insert(ctx context.Context, treeID, userAddress string, clickedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, treeID)
	return nil
}

func (r *fakeRecorder) CountSince(ctx context.Context, since time.Time, limit int) ([]storage.TreeClicks, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSince = since
	r.lastLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	return r.counts, nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
