package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
)

// DefaultSessionTTL bounds how long an applied discount outlives an abandoned
// checkout session.
const DefaultSessionTTL = 24 * time.Hour

// SessionRepository tracks the discount line applied to a checkout session.
// A session holds at most one discount; writing a new one replaces it.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepository{client: client, ttl: ttl}
}

func sessionKey(storeID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s:discount", storeID, sessionID)
}

// SetApplied stores the applied discount for a session, replacing any
// previously applied one.
func (r *SessionRepository) SetApplied(ctx context.Context, storeID, sessionID string, applied *domain.AppliedDiscount) error {
	data, err := json.Marshal(applied)
	if err != nil {
		return fmt.Errorf("marshal applied discount: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(storeID, sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set applied discount: %w", err)
	}
	return nil
}

// GetApplied returns the discount currently applied to a session.
func (r *SessionRepository) GetApplied(ctx context.Context, storeID, sessionID string) (*domain.AppliedDiscount, error) {
	data, err := r.client.Get(ctx, sessionKey(storeID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NotFound("applied discount", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get applied discount: %w", err)
	}

	var applied domain.AppliedDiscount
	if err := json.Unmarshal(data, &applied); err != nil {
		return nil, fmt.Errorf("unmarshal applied discount: %w", err)
	}
	return &applied, nil
}

// ClearApplied removes the applied discount from a session. Clearing a session
// with nothing applied is not an error.
func (r *SessionRepository) ClearApplied(ctx context.Context, storeID, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(storeID, sessionID)).Err(); err != nil {
		return fmt.Errorf("clear applied discount: %w", err)
	}
	return nil
}
