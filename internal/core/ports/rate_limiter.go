package ports

import "context"

// RateLimiter tracks failed-attempt counters over a fixed window.
// Check returns domain.ErrRateLimitExceeded once the key's budget is
// spent; RecordSuccess clears the counter so a legitimate user is not
// penalized by earlier mistakes.
type RateLimiter interface {
	Check(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string) (int64, error)
	RecordSuccess(ctx context.Context, key string) error
	// Allow is the combined increment-and-check used for per-request
	// throttling of general API traffic.
	Allow(ctx context.Context, key string) error
}
