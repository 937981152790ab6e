package idempotency

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gearrent/internal/logger"

	"github.com/redis/go-redis/v9"
)

const pendingValue = "pending"

// redisCommands is the part of redis.Cmdable the store issues.
type redisCommands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisStore struct {
	rdb redisCommands
	ttl time.Duration
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (int64, bool, error) {
	k := RentalCreateKey(key)
	logger.ExternalServiceCall("redis", "setnx", "key", k)

	ok, err := s.rdb.SetNX(ctx, k, pendingValue, s.ttl).Result()
	if err != nil {
		logger.ExternalServiceResult("redis", "setnx", err, "key", k)
		return 0, false, err
	}
	if ok {
		return 0, true, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return 0, false, ErrInProgress
	}
	if err != nil {
		return 0, false, err
	}
	if val == pendingValue {
		return 0, false, ErrInProgress
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, id int64) error {
	return s.rdb.Set(ctx, RentalCreateKey(key), strconv.FormatInt(id, 10), s.ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, RentalCreateKey(key)).Err()
}
