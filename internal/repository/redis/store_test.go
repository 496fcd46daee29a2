package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
)

func setupClient(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sampleStore() *domain.Store {
	return &domain.Store{
		ID:          "store-001",
		Name:        "Merci del Bien",
		AccessToken: "tok-abc",
		Scope:       "read_orders write_coupons",
		InstalledAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestStoreRepository_SaveAndGet(t *testing.T) {
	repo := NewStoreRepository(setupClient(t))
	ctx := context.Background()
	store := sampleStore()

	require.NoError(t, repo.Save(ctx, store))

	got, err := repo.Get(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ID, got.ID)
	assert.Equal(t, store.AccessToken, got.AccessToken)
	assert.Equal(t, store.InstalledAt, got.InstalledAt)
}

func TestStoreRepository_Get_NotFound(t *testing.T) {
	repo := NewStoreRepository(setupClient(t))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStoreRepository_GetByToken(t *testing.T) {
	repo := NewStoreRepository(setupClient(t))
	ctx := context.Background()
	store := sampleStore()
	require.NoError(t, repo.Save(ctx, store))

	got, err := repo.GetByToken(ctx, store.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, store.ID, got.ID)

	_, err = repo.GetByToken(ctx, "bogus")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestStoreRepository_Save_ReplacesStaleToken(t *testing.T) {
	repo := NewStoreRepository(setupClient(t))
	ctx := context.Background()

	store := sampleStore()
	require.NoError(t, repo.Save(ctx, store))

	// Reinstall rotates the token; the old one must stop authenticating.
	store.AccessToken = "tok-rotated"
	require.NoError(t, repo.Save(ctx, store))

	_, err := repo.GetByToken(ctx, "tok-abc")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	got, err := repo.GetByToken(ctx, "tok-rotated")
	require.NoError(t, err)
	assert.Equal(t, store.ID, got.ID)
}

func TestStoreRepository_Delete(t *testing.T) {
	repo := NewStoreRepository(setupClient(t))
	ctx := context.Background()
	store := sampleStore()
	require.NoError(t, repo.Save(ctx, store))

	require.NoError(t, repo.Delete(ctx, store.ID))

	_, err := repo.Get(ctx, store.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.GetByToken(ctx, store.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestStoreRepository_Delete_NotFound(t *testing.T) {
	repo := NewStoreRepository(setupClient(t))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
