package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	cohortsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, cohortsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		cohortsTTL: cohortsTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetCohorts(ctx context.Context) ([]domain.Cohort, error) {
	data, err := c.client.Get(ctx, cohortsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cohorts []domain.Cohort
	if err := json.Unmarshal(data, &cohorts); err != nil {
		return nil, err
	}
	return cohorts, nil
}

func (c *RedisCache) SetCohorts(ctx context.Context, cohorts []domain.Cohort) error {
	payload, err := json.Marshal(cohorts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cohortsKey(), payload, c.cohortsTTL).Err()
}

func (c *RedisCache) InvalidateCohorts(ctx context.Context) error {
	return c.client.Del(ctx, cohortsKey()).Err()
}

// MarkDelivery records a webhook delivery id and reports whether it is new.
func (c *RedisCache) MarkDelivery(ctx context.Context, provider domain.PaymentProvider, deliveryID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, deliveryKey(provider, deliveryID), "seen", ttl).Result()
}

// ForgetDelivery drops a delivery mark so a failed delivery can be retried.
func (c *RedisCache) ForgetDelivery(ctx context.Context, provider domain.PaymentProvider, deliveryID string) error {
	return c.client.Del(ctx, deliveryKey(provider, deliveryID)).Err()
}

func cohortsKey() string {
	return "cache:cohorts"
}

func deliveryKey(provider domain.PaymentProvider, deliveryID string) string {
	return fmt.Sprintf("dedupe:webhook:%s:%s", provider, deliveryID)
}
