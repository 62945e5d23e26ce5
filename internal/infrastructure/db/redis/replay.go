package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// A claim only needs to outlive the skew window the verifier accepts;
// 2 minutes covers it with margin.
const replayClaimTTL = 2 * time.Minute

// ReplayGuard enforces single use of a TOTP code within its time step.
// SETNX makes the claim atomic: the first verifier wins the counter, a
// replayed code loses even across service replicas.
// Key format: totp-used:<user_id>:<counter>
type ReplayGuard struct {
	client *redis.Client
}

func NewReplayGuard(client *redis.Client) *ReplayGuard {
	return &ReplayGuard{client: client}
}

// Claim records that the user consumed the code for this counter.
// Returns false when the counter was already claimed.
func (g *ReplayGuard) Claim(ctx context.Context, userID string, counter int64) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(userID, counter), "1", replayClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("replay claim: %w", err)
	}
	return ok, nil
}

func (g *ReplayGuard) key(userID string, counter int64) string {
	return fmt.Sprintf("totp-used:%s:%d", userID, counter)
}
