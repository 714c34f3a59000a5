package delegateref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/AtRiskMedia/keystone/collab"
)

// Redis is a Delegate backed by go-redis, storing values under a
// namespaced key layout in a real key-value store.
type Redis struct {
	client   *redis.Client
	prefix   string
	logger   *slog.Logger
	OnStatus func(collab.Status)
}

// NewRedis wraps an existing client. Keys are namespaced under prefix
// (e.g. "keystone:") so a delegate can share a database with other
// tenants.
func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) namespaced(key string) string { return r.prefix + key }

func (r *Redis) Persist(ctx context.Context, key string, value []byte) error {
	full := r.namespaced(key)
	if value == nil {
		if err := r.client.Del(ctx, full).Err(); err != nil {
			r.logger.Error("delegate delete failed", "key", full, "error", err)
			return fmt.Errorf("delegateref: delete %s: %w", full, err)
		}
		return nil
	}
	if err := r.client.Set(ctx, full, value, 0).Err(); err != nil {
		r.logger.Error("delegate persist failed", "key", full, "error", err)
		return fmt.Errorf("delegateref: set %s: %w", full, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, kind collab.ArtifactKind, key string) ([]byte, bool, error) {
	full := r.namespaced(key)
	data, err := r.client.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("delegateref: get %s: %w", full, err)
	}
	return data, true, nil
}

func (r *Redis) StatusChanged(status collab.Status) {
	if r.OnStatus != nil {
		r.OnStatus(status)
	}
}
