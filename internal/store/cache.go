package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/factlens/factlens/internal/spans"
)

// VerifyCache memoizes claim-verification results in Redis so re-running the
// same claim is served from cache instead of repeating the search and model
// calls. Verification is idempotent per claim, which makes it safe to cache.
type VerifyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewVerifyCache(addr, password string, db int, ttl time.Duration) (*VerifyCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &VerifyCache{client: client, ttl: ttl}, nil
}

func claimKey(claim, claimContext string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(claim)) + "\x00" + strings.TrimSpace(claimContext)))
	return "factlens:verify:" + hex.EncodeToString(sum[:])
}

// Get returns the cached verification for a claim, or false on miss.
func (c *VerifyCache) Get(ctx context.Context, claim, claimContext string) (spans.ClaimVerification, bool) {
	raw, err := c.client.Get(ctx, claimKey(claim, claimContext)).Bytes()
	if err != nil {
		return spans.ClaimVerification{}, false
	}
	var v spans.ClaimVerification
	if err := json.Unmarshal(raw, &v); err != nil {
		return spans.ClaimVerification{}, false
	}
	return v, true
}

// Put stores a verification result under the claim's hash.
func (c *VerifyCache) Put(ctx context.Context, claim, claimContext string, v spans.ClaimVerification) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	// Best effort: a cache write failure never fails the request.
	c.client.Set(ctx, claimKey(claim, claimContext), b, c.ttl)
}

func (c *VerifyCache) Close() error { return c.client.Close() }
