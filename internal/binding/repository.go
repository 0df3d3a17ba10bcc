package binding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "wxbridge/pkg/errors"
)

const keyPrefix = "binding:"

// Repository is the external key-value store for bindings. Get returns
// (nil, nil) when no binding exists.
type Repository interface {
	Get(ctx context.Context, userID string) (*Binding, error)
	Set(ctx context.Context, b *Binding) error
	Delete(ctx context.Context, userID string) error
}

type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRepository creates a redis-backed binding repository. ttl of zero
// means bindings never expire on their own.
func NewRepository(client *redis.Client, ttl time.Duration) Repository {
	return &RedisRepository{client: client, ttl: ttl}
}

func (r *RedisRepository) Get(ctx context.Context, userID string) (*Binding, error) {
	raw, err := r.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrBindingStore.WithCause(fmt.Errorf("redis GET failed: %w", err))
	}

	var b Binding
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, apperrors.ErrBindingStore.WithCause(fmt.Errorf("corrupt binding for %s: %w", userID, err))
	}
	return &b, nil
}

func (r *RedisRepository) Set(ctx context.Context, b *Binding) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return apperrors.ErrBindingStore.WithCause(err)
	}

	if err := r.client.Set(ctx, keyPrefix+b.UserID, raw, r.ttl).Err(); err != nil {
		return apperrors.ErrBindingStore.WithCause(fmt.Errorf("redis SET failed: %w", err))
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return apperrors.ErrBindingStore.WithCause(fmt.Errorf("redis DEL failed: %w", err))
	}
	return nil
}
