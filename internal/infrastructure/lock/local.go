// Package lock implementa la compuerta de creación de comprobantes y la guarda de idempotencia de la finalización,
// en memoria del proceso o sobre Redis cuando hay varias réplicas.
package lock

import (
	"context"
	"sync"
)

// LocalGate un mutex por clave; las claves sin uso se eliminan al liberar.
type LocalGate struct {
	mu    sync.Mutex
	locks map[string]*gateEntry
}

type gateEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocalGate crea la compuerta en memoria.
func NewLocalGate() *LocalGate {
	return &LocalGate{locks: make(map[string]*gateEntry)}
}

// Acquire bloquea hasta obtener la clave o hasta que ctx termine.
func (g *LocalGate) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	e, ok := g.locks[key]
	if !ok {
		e = &gateEntry{ch: make(chan struct{}, 1)}
		g.locks[key] = e
	}
	e.refs++
	g.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		g.unref(key, e)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			g.unref(key, e)
		})
	}, nil
}

func (g *LocalGate) unref(key string, e *gateEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(g.locks, key)
	}
}

// LocalGuard conjunto concurrente con semántica agregar-si-no-existe.
type LocalGuard struct {
	inFlight sync.Map
}

// NewLocalGuard crea la guarda en memoria.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

// TryAcquire marca la clave; ok=false si otra finalización ya la tiene.
func (g *LocalGuard) TryAcquire(_ context.Context, key string) (func(), bool, error) {
	if _, loaded := g.inFlight.LoadOrStore(key, struct{}{}); loaded {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(func() { g.inFlight.Delete(key) }) }, true, nil
}

// Held indica si la clave está tomada.
func (g *LocalGuard) Held(key string) bool {
	_, ok := g.inFlight.Load(key)
	return ok
}
