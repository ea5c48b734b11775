package symbols

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tickphysics-lab/internal/config"
	"tickphysics-lab/internal/database"
	"tickphysics-lab/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDatabase(&config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "symbols.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return NewStore(db)
}

func str(s string) *string { return &s }

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sym, err := store.Create(ctx, CreateInput{Name: "  EURUSD ", Description: str("Euro / US dollar")})
	require.NoError(t, err)
	assert.NotZero(t, sym.ID)
	assert.Equal(t, "EURUSD", sym.Name)
	require.NotNil(t, sym.Description)
	assert.Equal(t, "Euro / US dollar", *sym.Description)

	got, err := store.Get(ctx, sym.ID)
	require.NoError(t, err)
	assert.Equal(t, sym.Name, got.Name)

	_, err = store.Get(ctx, sym.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CreateDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, CreateInput{Name: "GBPUSD"})
	require.NoError(t, err)
	_, err = store.Create(ctx, CreateInput{Name: "GBPUSD"})
	assert.ErrorIs(t, err, ErrConflict)

	list, err := store.List(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	testCases := []struct {
		name  string
		input CreateInput
	}{
		{name: "empty name", input: CreateInput{Name: ""}},
		{name: "blank name", input: CreateInput{Name: "   "}},
		{name: "long name", input: CreateInput{Name: strings.Repeat("X", 65)}},
		{name: "long description", input: CreateInput{Name: "USDJPY", Description: str(strings.Repeat("d", 256))}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Create(ctx, tc.input)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD"} {
		_, err := store.Create(ctx, CreateInput{Name: name})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "EURUSD", all[0].Name)

	page, err := store.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "GBPUSD", page[0].Name)
	assert.Equal(t, "USDJPY", page[1].Name)
}

func TestStore_Update(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	eur, err := store.Create(ctx, CreateInput{Name: "EURUSD", Description: str("fiber")})
	require.NoError(t, err)
	_, err = store.Create(ctx, CreateInput{Name: "GBPUSD"})
	require.NoError(t, err)

	updated, err := store.Update(ctx, eur.ID, UpdateInput{Name: str("EURUSD.m")})
	require.NoError(t, err)
	assert.Equal(t, "EURUSD.m", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "fiber", *updated.Description)

	// same name is not a conflict with itself
	_, err = store.Update(ctx, eur.ID, UpdateInput{Name: str("EURUSD.m")})
	assert.NoError(t, err)

	_, err = store.Update(ctx, eur.ID, UpdateInput{Name: str("GBPUSD")})
	assert.ErrorIs(t, err, ErrConflict)

	cleared, err := store.Update(ctx, eur.ID, UpdateInput{Description: str("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)

	_, err = store.Update(ctx, eur.ID, UpdateInput{Name: str("")})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = store.Update(ctx, 999, UpdateInput{Name: str("NZDUSD")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sym, err := store.Create(ctx, CreateInput{Name: "EURUSD"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sym.ID))
	assert.ErrorIs(t, store.Delete(ctx, sym.ID), ErrNotFound)

	_, err = store.Get(ctx, sym.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UniqueIndexMapsToConflict(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.db.Create(&models.Symbol{Name: "EURUSD"}).Error)

	err := store.db.Create(&models.Symbol{Name: "EURUSD"}).Error
	require.Error(t, err)
	assert.ErrorIs(t, translate(err), ErrConflict)
}

func TestStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
