package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tundeajala/bookhaven-payments/pkg/redis"
)

// DedupeGuard swallows redelivered webhook payloads at the edge. It is
// advisory only: the conditional fulfilled-flag update in the store is
// what actually guarantees once-only payout, so losing a Redis key is
// harmless.
type DedupeGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewDedupeGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*DedupeGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &DedupeGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// DeliveryKey identifies one delivery: the same payment moving through
// distinct statuses must not dedupe against itself.
func DeliveryKey(paymentID, status string) string {
	return fmt.Sprintf("%s:%s", paymentID, status)
}

// CheckAndMark returns true when the delivery was already seen, and
// marks it seen otherwise.
func (g *DedupeGuard) CheckAndMark(ctx context.Context, deliveryKey string) (bool, error) {
	if deliveryKey == "" {
		return false, errors.New("delivery key is required")
	}
	key := g.store.IdempotencyKey(g.scope, deliveryKey)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set dedupe key: %w", err)
	}
	return !set, nil
}

// Delete releases the mark so the processor's retry can get through
// after a handling failure.
func (g *DedupeGuard) Delete(ctx context.Context, deliveryKey string) error {
	if deliveryKey == "" {
		return errors.New("delivery key is required")
	}
	key := g.store.IdempotencyKey(g.scope, deliveryKey)
	return g.store.Del(ctx, key)
}
