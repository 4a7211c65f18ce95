package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/infrastructure/lock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Puerto 1 en loopback: conexión rechazada sin depender de un Redis real.
const unreachableRedis = "127.0.0.1:1"

func TestNewRedisClient_SinServidor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb, err := lock.NewRedisClient(ctx, lock.RedisConfig{Addr: unreachableRedis})
	require.Error(t, err)
	assert.Nil(t, rdb)
	assert.Contains(t, err.Error(), unreachableRedis)
}

func TestRedisGuard_ErrorDeConexionNoEsOcupado(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: unreachableRedis, MaxRetries: -1})
	defer rdb.Close()
	guard := lock.NewRedisGuard(rdb, "test:", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	release, ok, err := guard.TryAcquire(ctx, "invoice:1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
}
