package oracle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
)

// Cached memoises successful completions for identical prompts for a fixed TTL.
// Failures are never cached.
type Cached struct {
	next  Oracle
	ttl   time.Duration
	cache *ristretto.Cache[uint64, string]
}

// NewCached wraps next with a response cache bounded to maxBytes of response text.
func NewCached(next Oracle, ttl time.Duration, maxBytes int64) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, string]{
		NumCounters: 10000, // keys tracked for admission frequency
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("NewCached: create cache: %w", err)
	}
	return &Cached{next: next, ttl: ttl, cache: cache}, nil
}

// Complete implements Oracle.
func (c *Cached) Complete(ctx context.Context, p Prompt) (string, error) {
	key := promptKey(p)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}

	text, err := c.next.Complete(ctx, p)
	if err != nil {
		return "", err
	}

	c.cache.SetWithTTL(key, text, int64(len(text)), c.ttl)
	c.cache.Wait()
	return text, nil
}

// Close releases the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}

func promptKey(p Prompt) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(p.System)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(p.User)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatFloat(float64(p.Temperature), 'f', -1, 32))
	_, _ = d.WriteString(strconv.FormatInt(int64(p.MaxTokens), 10))
	_, _ = d.WriteString(strconv.FormatBool(p.JSON))
	return d.Sum64()
}
