package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLedgerPrefix = "quiz:posted:"
	DefaultLedgerTTL    = 72 * time.Hour
)

// Ledger records which slots were already delivered, keyed by quiz id plus
// slot number, so a re-run for the same slot can be stopped before it calls
// the generation service.
type Ledger struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewLedger creates a ledger on c. Empty prefix and zero ttl use the
// defaults.
func NewLedger(c *Cache, prefix string, ttl time.Duration) *Ledger {
	if prefix == "" {
		prefix = DefaultLedgerPrefix
	}
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &Ledger{client: c.Client, prefix: prefix, ttl: ttl}
}

func (l *Ledger) redisKey(key string) string {
	return l.prefix + key
}

// WasPosted reports whether key is recorded as delivered.
func (l *Ledger) WasPosted(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("checking ledger for %s: %w", key, err)
	}
	return n > 0, nil
}

// MarkPosted records key with the message it was delivered as. It
// returns false when the id was already recorded; the first record wins.
func (l *Ledger) MarkPosted(ctx context.Context, key, messageID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.redisKey(key), messageID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording %s in ledger: %w", key, err)
	}
	return ok, nil
}

// PostedMessage returns the message id recorded for key, or "" when the
// id is not recorded.
func (l *Ledger) PostedMessage(ctx context.Context, key string) (string, error) {
	id, err := l.client.Get(ctx, l.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading ledger for %s: %w", key, err)
	}
	return id, nil
}
