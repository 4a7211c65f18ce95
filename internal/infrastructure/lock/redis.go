package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisConfig conexión a Redis para los candados distribuidos.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient conecta y verifica con PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RedisGate compuerta de creación compartida entre réplicas.
// El TTL cubre la transacción de creación; Wait acota la espera por la clave.
type RedisGate struct {
	locker *redislock.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisGate construye la compuerta.
func NewRedisGate(rdb redis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisGate {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &RedisGate{locker: redislock.New(rdb), prefix: prefix, ttl: ttl, wait: wait}
}

// Acquire reintenta con backoff lineal hasta obtener la clave o agotar la espera.
func (g *RedisGate) Acquire(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()
	l, err := g.locker.Obtain(waitCtx, g.prefix+key, g.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("lock %s ocupado: %w", key, err)
		}
		return nil, err
	}
	return func() { _ = l.Release(context.Background()) }, nil
}

// RedisGuard guarda de idempotencia distribuida (SET NX con TTL).
type RedisGuard struct {
	locker *redislock.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGuard construye la guarda; ttl debe superar la duración de una finalización.
func NewRedisGuard(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisGuard{locker: redislock.New(rdb), prefix: prefix, ttl: ttl}
}

// TryAcquire no reintenta: si la clave existe otra finalización está en curso.
func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	l, err := g.locker.Obtain(ctx, g.prefix+key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return func() { _ = l.Release(context.Background()) }, true, nil
}
