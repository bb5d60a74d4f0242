package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/storage"
	"github.com/soltrees/api/internal/types"
)

func seedTree(t *testing.T, store *memTreeStore, tree *models.Tree) string {
	t.Helper()
	id, err := store.Insert(context.Background(), tree)
	require.NoError(t, err)
	return id
}

func TestClick_IncrementsAndRecords(t *testing.T) {
	trees := newMemTreeStore()
	recorder := &fakeRecorder{}
	svc := NewTreeService(trees, newMemUserStore(), nil, recorder, testLogger())

	id := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})

	clicks, err := svc.Click(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), clicks)

	clicks, err = svc.Click(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), clicks)

	assert.Equal(t, 2, recorder.count())
}

func TestClick_ConcurrentIncrementsAreDistinct(t *testing.T) {
	trees := newMemTreeStore()
	svc := NewTreeService(trees, newMemUserStore(), nil, nil, testLogger())

	id := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})

	const n = 50
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clicks, err := svc.Click(context.Background(), id, "")
			if err == nil {
				results <- clicks
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for clicks := range results {
		assert.False(t, seen[clicks], "click count %d returned twice", clicks)
		seen[clicks] = true
	}
	require.Len(t, seen, n)

	tree, err := trees.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(n), tree.Clicks)
}

func TestClick_UnknownTree(t *testing.T) {
	svc := NewTreeService(newMemTreeStore(), newMemUserStore(), nil, nil, testLogger())

	_, err := svc.Click(context.Background(), "6f1f9f2a-0000-4000-8000-00000000dead", "")
	require.Error(t, err)
	assertStatus(t, err, http.StatusNotFound)
}

func TestClick_MalformedID(t *testing.T) {
	svc := NewTreeService(newMemTreeStore(), newMemUserStore(), nil, nil, testLogger())

	_, err := svc.Click(context.Background(), "not-a-uuid", "")
	require.Error(t, err)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestClick_RecorderFailureDoesNotFailClick(t *testing.T) {
	trees := newMemTreeStore()
	recorder := &fakeRecorder{err: errors.New("clickhouse down")}
	svc := NewTreeService(trees, newMemUserStore(), nil, recorder, testLogger())

	id := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})

	clicks, err := svc.Click(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), clicks)
}

func TestListAll_UsesCache(t *testing.T) {
	trees := newMemTreeStore()
	cache := newMemCache()
	svc := NewTreeService(trees, newMemUserStore(), cache, nil, testLogger())

	seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})

	first, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, 1, trees.calls["ListAll"], "second read should come from cache")
}

func TestListByCategory_FiltersAndCaches(t *testing.T) {
	trees := newMemTreeStore()
	cache := newMemCache()
	svc := NewTreeService(trees, newMemUserStore(), cache, nil, testLogger())

	seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})
	seedTree(t, trees, &models.Tree{Category: types.CategoryRecruiter})

	devs, err := svc.ListByCategory(context.Background(), types.CategoryDeveloper)
	require.NoError(t, err)
	require.Len(t, devs, 1)

	// Unknown category: empty, not an error.
	none, err := svc.ListByCategory(context.Background(), "8b2e7c1d-0000-4000-8000-000000000009")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.ListByCategory(context.Background(), types.CategoryDeveloper)
	require.NoError(t, err)
	assert.Equal(t, 2, trees.calls["ListByCategory"], "repeat developer listing served from cache")
}

func TestGetUserTrees(t *testing.T) {
	trees := newMemTreeStore()
	users := newMemUserStore()
	svc := NewTreeService(trees, users, nil, nil, testLogger())
	ctx := context.Background()

	id := seedTree(t, trees, &models.Tree{UserAddress: addrAlice, Category: types.CategoryDeveloper})
	_, err := users.EnsureUser(ctx, addrAlice)
	require.NoError(t, err)
	require.NoError(t, users.LinkTree(ctx, addrAlice, id, "alice"))

	got, err := svc.GetUserTrees(ctx, addrAlice)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)

	// Unknown user: empty list, not an error.
	empty, err := svc.GetUserTrees(ctx, addrBob)
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Malformed address is rejected.
	_, err = svc.GetUserTrees(ctx, "junk")
	require.Error(t, err)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestGetByID(t *testing.T) {
	trees := newMemTreeStore()
	svc := NewTreeService(trees, newMemUserStore(), nil, nil, testLogger())

	id := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})

	tree, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, tree.ID)

	_, err = svc.GetByID(context.Background(), "6f1f9f2a-0000-4000-8000-00000000dead")
	assertStatus(t, err, http.StatusNotFound)

	_, err = svc.GetByID(context.Background(), "garbage")
	assertStatus(t, err, http.StatusBadRequest)
}

func TestLeaderboard_OrderAndLimits(t *testing.T) {
	trees := newMemTreeStore()
	svc := NewTreeService(trees, newMemUserStore(), nil, nil, testLogger())
	ctx := context.Background()

	low := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})
	high := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})
	for i := 0; i < 5; i++ {
		_, err := trees.IncrementClicks(ctx, high)
		require.NoError(t, err)
	}
	_, err := trees.IncrementClicks(ctx, low)
	require.NoError(t, err)

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, high, board[0].ID)
	assert.Equal(t, low, board[1].ID)

	one, err := svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, high, one[0].ID)
}

func TestRecentLeaderboard_OrdersByWindowCounts(t *testing.T) {
	trees := newMemTreeStore()
	recorder := &fakeRecorder{}
	svc := NewTreeService(trees, newMemUserStore(), nil, recorder, testLogger())
	ctx := context.Background()

	quiet := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})
	busy := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})

	// The all-time counters say quiet is ahead, but the recent window says
	// busy is.
	for i := 0; i < 9; i++ {
		_, err := trees.IncrementClicks(ctx, quiet)
		require.NoError(t, err)
	}
	recorder.counts = []storage.TreeClicks{
		{TreeID: busy, Clicks: 5},
		{TreeID: quiet, Clicks: 1},
		{TreeID: "6f1f9f2a-0000-4000-8000-00000000dead", Clicks: 3},
	}

	board, err := svc.RecentLeaderboard(ctx, time.Hour, 0)
	require.NoError(t, err)
	require.Len(t, board, 2, "events for vanished trees are skipped")
	assert.Equal(t, busy, board[0].ID)
	assert.Equal(t, quiet, board[1].ID)

	assert.Equal(t, DefaultLeaderboardSize, recorder.lastLimit)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), recorder.lastSince, 5*time.Second)
}

func TestRecentLeaderboard_BadWindow(t *testing.T) {
	svc := NewTreeService(newMemTreeStore(), newMemUserStore(), nil, &fakeRecorder{}, testLogger())

	_, err := svc.RecentLeaderboard(context.Background(), 0, 5)
	assertStatus(t, err, http.StatusBadRequest)

	_, err = svc.RecentLeaderboard(context.Background(), -time.Minute, 5)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestRecentLeaderboard_RecorderFailure(t *testing.T) {
	svc := NewTreeService(newMemTreeStore(), newMemUserStore(), nil,
		&fakeRecorder{err: errors.New("clickhouse down")}, testLogger())

	_, err := svc.RecentLeaderboard(context.Background(), time.Hour, 5)
	assertStatus(t, err, http.StatusInternalServerError)
}

func TestRecentLeaderboard_NoRecorderFallsBack(t *testing.T) {
	trees := newMemTreeStore()
	svc := NewTreeService(trees, newMemUserStore(), nil, nil, testLogger())
	ctx := context.Background()

	top := seedTree(t, trees, &models.Tree{Category: types.CategoryDeveloper})
	_, err := trees.IncrementClicks(ctx, top)
	require.NoError(t, err)

	board, err := svc.RecentLeaderboard(ctx, time.Hour, 5)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, top, board[0].ID)
	assert.Equal(t, 1, trees.calls["Leaderboard"])
}
