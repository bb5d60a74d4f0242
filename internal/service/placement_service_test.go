package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/soltrees/api/internal/errors"
	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/types"
)

type placementFixture struct {
	trees      *memTreeStore
	users      *memUserStore
	categories *memCategoryStore
	verifier   *fakeVerifier
	cache      *memCache
	svc        *PlacementService
}

func newPlacementFixture(paid bool) *placementFixture {
	f := &placementFixture{
		trees:      newMemTreeStore(),
		users:      newMemUserStore(),
		categories: newMemCategoryStore(),
		verifier:   &fakeVerifier{paid: paid},
		cache:      newMemCache(),
	}
	f.svc = NewPlacementService(
		f.trees, f.users, f.categories, f.verifier,
		&fakeAvatar{url: "https://img.example/alice.png"},
		f.cache, testLogger(),
	)
	return f
}

func validInput() *PlaceTreeInput {
	return &PlaceTreeInput{
		PositionX:   "12.5",
		PositionY:   "-3.75",
		UserAddress: addrAlice,
		Handle:      "alice",
		Description: "my first tree",
		Link:        "https://example.com",
		Size:        "Small",
		Shape:       "classic",
		Category:    types.CategoryDeveloper,
	}
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	var catErr *apperrors.CategorizedError
	require.True(t, errors.As(err, &catErr), "expected CategorizedError, got %v", err)
	assert.Equal(t, want, catErr.StatusCode)
}

func TestPlaceTree_Success(t *testing.T) {
	f := newPlacementFixture(true)

	tree, err := f.svc.PlaceTree(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, tree.ID)
	assert.Equal(t, int64(0), tree.Clicks)
	assert.Equal(t, types.SizeSmall, tree.Size)
	assert.Equal(t, types.ShapeClassic, tree.Shape)
	assert.Equal(t, "https://img.example/alice.png", tree.ProfilePicURL)
	assert.False(t, tree.CreatedAt.IsZero())

	// Verifier saw the price of the requested size.
	assert.Equal(t, 1, f.verifier.callCount())
	assert.True(t, f.verifier.lastArg.Equal(decimal.RequireFromString("0.1")))

	// User record was ensured and the tree linked to it.
	user, err := f.users.GetByAddress(context.Background(), addrAlice)
	require.NoError(t, err)
	assert.Equal(t, []string{tree.ID}, user.Trees)
	assert.Equal(t, "alice", user.Handle)
}

func TestPlaceTree_PaymentNotFound(t *testing.T) {
	f := newPlacementFixture(false)

	_, err := f.svc.PlaceTree(context.Background(), validInput())
	require.Error(t, err)
	assertStatus(t, err, http.StatusPaymentRequired)

	var catErr *apperrors.CategorizedError
	errors.As(err, &catErr)
	assert.Equal(t, "PAYMENT_NOT_FOUND", catErr.Code)

	// Nothing was written: the request is safely retryable after paying.
	assert.Equal(t, 0, f.trees.count())
	assert.Equal(t, 0, f.users.count())
}

func TestPlaceTree_ValidationBeforeVerifier(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaceTreeInput)
	}{
		{"missing position", func(in *PlaceTreeInput) { in.PositionX = "" }},
		{"bad address", func(in *PlaceTreeInput) { in.UserAddress = "nope" }},
		{"unknown size", func(in *PlaceTreeInput) { in.Size = "Colossal" }},
		{"lowercase size", func(in *PlaceTreeInput) { in.Size = "small" }},
		{"unknown shape", func(in *PlaceTreeInput) { in.Shape = "spiky" }},
		{"empty category", func(in *PlaceTreeInput) { in.Category = "" }},
		{"unknown category", func(in *PlaceTreeInput) { in.Category = "8b2e7c1d-0000-4000-8000-000000000009" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPlacementFixture(true)
			input := validInput()
			tt.mutate(input)

			_, err := f.svc.PlaceTree(context.Background(), input)
			require.Error(t, err)
			assertStatus(t, err, http.StatusBadRequest)

			assert.Equal(t, 0, f.verifier.callCount(), "verifier must not be consulted for invalid requests")
			assert.Equal(t, 0, f.trees.count())
		})
	}
}

func TestPlaceTree_VerifierErrorIsInternal(t *testing.T) {
	f := newPlacementFixture(true)
	f.verifier.err = errors.New("malformed amount")

	_, err := f.svc.PlaceTree(context.Background(), validInput())
	require.Error(t, err)
	assertStatus(t, err, http.StatusInternalServerError)
	assert.Equal(t, 0, f.trees.count())
}

func TestPlaceTree_CustomCategory(t *testing.T) {
	f := newPlacementFixture(true)

	custom := models.Category{Title: "gardening", CreatedBy: addrBob}
	id, err := f.categories.Insert(context.Background(), &custom)
	require.NoError(t, err)

	input := validInput()
	input.Category = id

	tree, err := f.svc.PlaceTree(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, id, tree.Category)
}

func TestPlaceTree_RepeatPlacementsAccumulate(t *testing.T) {
	f := newPlacementFixture(true)
	ctx := context.Background()

	first, err := f.svc.PlaceTree(ctx, validInput())
	require.NoError(t, err)

	second := validInput()
	second.Handle = "alice_v2"
	secondTree, err := f.svc.PlaceTree(ctx, second)
	require.NoError(t, err)

	user, err := f.users.GetByAddress(ctx, addrAlice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, secondTree.ID}, user.Trees)
	assert.Equal(t, "alice_v2", user.Handle, "handle is overwritten on each placement")
	assert.Equal(t, 1, f.users.count(), "repeat placements reuse the user record")

	// The first tree keeps its handle snapshot.
	firstAgain, err := f.trees.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", firstAgain.Handle)
}

func TestPlaceTree_InvalidatesListingCache(t *testing.T) {
	f := newPlacementFixture(true)
	ctx := context.Background()

	require.NoError(t, f.cache.SetAll(ctx, nil))
	require.NoError(t, f.cache.SetByCategory(ctx, types.CategoryDeveloper, nil))

	_, err := f.svc.PlaceTree(ctx, validInput())
	require.NoError(t, err)

	_, found := f.cache.GetAll(ctx)
	assert.False(t, found)
	_, found = f.cache.GetByCategory(ctx, types.CategoryDeveloper)
	assert.False(t, found)
}
