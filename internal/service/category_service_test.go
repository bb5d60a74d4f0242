package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCategory(t *testing.T) {
	store := newMemCategoryStore()
	svc := NewCategoryService(store, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateCategoryInput{
		Title:       "gardening",
		Description: "green thumbs",
		Color:       "#00aa55",
		CreatedBy:   addrAlice,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "gardening", created.Title)
	assert.False(t, created.CreatedAt.IsZero())

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestCreateCategory_Validation(t *testing.T) {
	svc := NewCategoryService(newMemCategoryStore(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateCategoryInput{Title: "", CreatedBy: addrAlice})
	require.Error(t, err)
	assertStatus(t, err, http.StatusBadRequest)

	_, err = svc.Create(ctx, &CreateCategoryInput{Title: "ok", CreatedBy: "bad-address"})
	require.Error(t, err)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestListCategories_OldestFirst(t *testing.T) {
	store := newMemCategoryStore()
	svc := NewCategoryService(store, testLogger())
	ctx := context.Background()

	first, err := svc.Create(ctx, &CreateCategoryInput{Title: "one", CreatedBy: addrAlice})
	require.NoError(t, err)
	second, err := svc.Create(ctx, &CreateCategoryInput{Title: "two", CreatedBy: addrBob})
	require.NoError(t, err)

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)
}
