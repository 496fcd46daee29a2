package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
)

// reserveGrace keeps a reservation counter alive long enough for the order
// webhook to commit it even when the month rolls over mid-checkout.
const reserveGrace = 48 * time.Hour

// Check-and-increment must be atomic; two concurrent checkouts racing past a
// plain GET/INCR pair could both clear a limit with one slot left.
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
    return -1
end
local v = redis.call('INCR', KEYS[1])
if v == 1 then
    redis.call('EXPIREAT', KEYS[1], ARGV[2])
end
return v
`)

var releaseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current <= 0 then
    return 0
end
return redis.call('DECR', KEYS[1])
`)

// UsageLimiter enforces monthly per-client usage caps on campaign codes. Each
// (store, client, campaign, month) tuple gets its own counter; Reserve
// atomically checks it against the limit and increments it.
type UsageLimiter struct {
	client *redis.Client
}

func NewUsageLimiter(client *redis.Client) *UsageLimiter {
	return &UsageLimiter{client: client}
}

func usageKey(storeID, clientID, campaignID string, month time.Time) string {
	return fmt.Sprintf("usage:%s:%s:%s:%s", storeID, clientID, campaignID, month.UTC().Format("2006-01"))
}

// monthEnd returns the first instant of the following month in UTC.
func monthEnd(month time.Time) time.Time {
	m := month.UTC()
	return time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// Reserve takes one usage slot for the client, returning
// repository.ErrLimitReached when the monthly cap is already consumed.
// A non-positive limit means the campaign is uncapped.
func (l *UsageLimiter) Reserve(ctx context.Context, storeID, clientID, campaignID string, limit int, month time.Time) error {
	if limit <= 0 {
		return nil
	}

	expireAt := monthEnd(month).Add(reserveGrace).Unix()
	res, err := reserveScript.Run(ctx, l.client,
		[]string{usageKey(storeID, clientID, campaignID, month)},
		limit, expireAt,
	).Int64()
	if err != nil {
		return fmt.Errorf("reserve usage slot: %w", err)
	}
	if res < 0 {
		return repository.ErrLimitReached
	}
	return nil
}

// Commit pins the counter's expiry to the end of the usage month plus grace,
// so a committed redemption counts against the cap for the rest of the month.
func (l *UsageLimiter) Commit(ctx context.Context, storeID, clientID, campaignID string, month time.Time) error {
	expireAt := monthEnd(month).Add(reserveGrace)
	if err := l.client.ExpireAt(ctx, usageKey(storeID, clientID, campaignID, month), expireAt).Err(); err != nil {
		return fmt.Errorf("commit usage slot: %w", err)
	}
	return nil
}

// Release frees a reserved slot whose redemption never committed. The counter
// never goes below zero.
func (l *UsageLimiter) Release(ctx context.Context, storeID, clientID, campaignID string, month time.Time) error {
	if _, err := releaseScript.Run(ctx, l.client,
		[]string{usageKey(storeID, clientID, campaignID, month)},
	).Int64(); err != nil {
		return fmt.Errorf("release usage slot: %w", err)
	}
	return nil
}
