package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/infrastructure/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGate_ExclusionMutua(t *testing.T) {
	gate := lock.NewLocalGate()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := gate.Acquire(context.Background(), "01:001-001")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside, "nunca dos dentro de la sección crítica")
}

func TestLocalGate_ClavesIndependientes(t *testing.T) {
	gate := lock.NewLocalGate()
	r1, err := gate.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	r2, err := gate.Acquire(ctx, "b")
	require.NoError(t, err, "otra clave no espera")
	r2()
}

func TestLocalGate_RespetaContexto(t *testing.T) {
	gate := lock.NewLocalGate()
	release, err := gate.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gate.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalGuard_AgregarSiNoExiste(t *testing.T) {
	guard := lock.NewLocalGuard()
	release, ok, err := guard.TryAcquire(context.Background(), "invoice:1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = guard.TryAcquire(context.Background(), "invoice:1")
	require.NoError(t, err)
	assert.False(t, ok, "segunda marca rechazada mientras la primera siga activa")

	release()
	release() // liberar dos veces no tiene efecto
	assert.False(t, guard.Held("invoice:1"))

	r, ok, _ := guard.TryAcquire(context.Background(), "invoice:1")
	assert.True(t, ok)
	r()
}
