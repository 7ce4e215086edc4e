// Package registry implements the Redis-backed token registry: current
// access/refresh pair per user plus jti revocation markers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kinoteka.org/internal/auth"
)

// Key formats are part of the deployed data layout; do not change them
// without migrating live entries.
const (
	accessKeyFmt  = "accessToken_%s"
	refreshKeyFmt = "refreshToken_%s"
	jtiBlockFmt   = "jtiBlock_%s"
)

// Registry tracks tokens in Redis. Every operation propagates store errors:
// an unavailable registry must reject requests, never pass them.
type Registry struct {
	rdb        *redis.Client
	accessTTL  time.Duration
	refreshTTL time.Duration
}

var _ auth.TokenRegistry = (*Registry)(nil)

// New constructs a Registry over an existing client. Revocation markers are
// written with the refresh lifetime so they outlive any token they block.
func New(rdb *redis.Client, accessTTL, refreshTTL time.Duration) (*Registry, error) {
	if rdb == nil {
		return nil, errors.New("registry: redis client is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("registry: token lifetimes must be positive")
	}
	return &Registry{rdb: rdb, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr string, accessTTL, refreshTTL time.Duration) (*Registry, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("registry: connect %s: %w", addr, err)
	}
	return New(rdb, accessTTL, refreshTTL)
}

// SavePair overwrites the user's current pair; each entry expires with its
// token's lifetime. Last write wins across concurrent logins.
func (r *Registry) SavePair(ctx context.Context, userID, accessToken, refreshToken string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(accessKeyFmt, userID), accessToken, r.accessTTL)
	pipe.Set(ctx, fmt.Sprintf(refreshKeyFmt, userID), refreshToken, r.refreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registry: save pair: %w", err)
	}
	return nil
}

// SaveAccess re-saves only the current access entry, used when a refresh
// reissues the access token without rotating the refresh token.
func (r *Registry) SaveAccess(ctx context.Context, userID, accessToken string) error {
	if err := r.rdb.Set(ctx, fmt.Sprintf(accessKeyFmt, userID), accessToken, r.accessTTL).Err(); err != nil {
		return fmt.Errorf("registry: save access: %w", err)
	}
	return nil
}

// MarkRevoked inserts a revocation marker for the jti. With a non-empty
// userID it also deletes that user's current pair, forcing immediate
// de-authentication beyond jti-level blocking.
func (r *Registry) MarkRevoked(ctx context.Context, jti, userID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(jtiBlockFmt, jti), "", r.refreshTTL)
	if userID != "" {
		pipe.Del(ctx, fmt.Sprintf(accessKeyFmt, userID), fmt.Sprintf(refreshKeyFmt, userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registry: mark revoked: %w", err)
	}
	return nil
}

// IsRevoked reports whether a revocation marker exists for the jti.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, fmt.Sprintf(jtiBlockFmt, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("registry: is revoked: %w", err)
	}
	return n > 0, nil
}

// IsRefreshCurrent reports whether the presented refresh token equals the
// stored current one. Superseded tokens fail here even while still
// cryptographically valid.
func (r *Registry) IsRefreshCurrent(ctx context.Context, userID, refreshToken string) (bool, error) {
	current, err := r.CurrentRefresh(ctx, userID)
	if err != nil {
		return false, err
	}
	return current != "" && current == refreshToken, nil
}

// CurrentAccess returns the stored current access token, or "" if none.
func (r *Registry) CurrentAccess(ctx context.Context, userID string) (string, error) {
	return r.get(ctx, fmt.Sprintf(accessKeyFmt, userID))
}

// CurrentRefresh returns the stored current refresh token, or "" if none.
func (r *Registry) CurrentRefresh(ctx context.Context, userID string) (string, error) {
	return r.get(ctx, fmt.Sprintf(refreshKeyFmt, userID))
}

func (r *Registry) get(ctx context.Context, key string) (string, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("registry: get %s: %w", key, err)
	}
	return val, nil
}

// Ping verifies the Redis connection, used by the readiness probe.
func (r *Registry) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Registry) Close() error { return r.rdb.Close() }
