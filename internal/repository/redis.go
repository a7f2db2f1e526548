package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fsaeinventory/internal/config"
	"fsaeinventory/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisConfirmationRepository stores pending deletions as expiring keys.
type RedisConfirmationRepository struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisConfirmationRepository(client *redis.Client) *RedisConfirmationRepository {
	return &RedisConfirmationRepository{client: client}
}

func confirmationKey(token string) string {
	return fmt.Sprintf("inventory:delete:%s", token)
}

func (r *RedisConfirmationRepository) Put(ctx context.Context, pending *domain.PendingDeletion, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending deletion: %w", err)
	}
	if err := r.client.Set(ctx, confirmationKey(pending.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set pending deletion in redis: %w", err)
	}
	return nil
}

func (r *RedisConfirmationRepository) Get(ctx context.Context, token string) (*domain.PendingDeletion, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, confirmationKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending deletion from redis: %w", err)
	}

	var pending domain.PendingDeletion
	if err := json.Unmarshal([]byte(val), &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending deletion: %w", err)
	}
	return &pending, nil
}

func (r *RedisConfirmationRepository) Delete(ctx context.Context, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, confirmationKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending deletion from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
