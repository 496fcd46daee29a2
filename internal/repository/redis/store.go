// Package redis implements the store, session and usage-limit repositories on
// top of Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
)

// StoreRepository persists installed-store credentials in Redis. Besides the
// store record itself it maintains a token index so admin requests can be
// resolved to a store in a single lookup.
type StoreRepository struct {
	client *redis.Client
}

func NewStoreRepository(client *redis.Client) *StoreRepository {
	return &StoreRepository{client: client}
}

func storeKey(storeID string) string {
	return fmt.Sprintf("store:%s", storeID)
}

func storeTokenKey(token string) string {
	return fmt.Sprintf("store_token:%s", token)
}

// Save upserts the store record and its token index. When the store was
// previously installed with a different token, the stale index entry is
// removed so the old token stops authenticating.
func (r *StoreRepository) Save(ctx context.Context, store *domain.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	prev, err := r.Get(ctx, store.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	pipe := r.client.TxPipeline()
	if prev != nil && prev.AccessToken != "" && prev.AccessToken != store.AccessToken {
		pipe.Del(ctx, storeTokenKey(prev.AccessToken))
	}
	pipe.Set(ctx, storeKey(store.ID), data, 0)
	if store.AccessToken != "" {
		pipe.Set(ctx, storeTokenKey(store.AccessToken), store.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	return nil
}

// Get retrieves a store by its platform store ID.
func (r *StoreRepository) Get(ctx context.Context, storeID string) (*domain.Store, error) {
	data, err := r.client.Get(ctx, storeKey(storeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NotFound("store", storeID)
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}

	var store domain.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("unmarshal store: %w", err)
	}
	return &store, nil
}

// GetByToken resolves the store that owns the given admin access token.
func (r *StoreRepository) GetByToken(ctx context.Context, token string) (*domain.Store, error) {
	storeID, err := r.client.Get(ctx, storeTokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.Unauthorized("unknown access token")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return r.Get(ctx, storeID)
}

// Delete removes the store record and its token index.
func (r *StoreRepository) Delete(ctx context.Context, storeID string) error {
	store, err := r.Get(ctx, storeID)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, storeKey(storeID))
	if store.AccessToken != "" {
		pipe.Del(ctx, storeTokenKey(store.AccessToken))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return nil
}
