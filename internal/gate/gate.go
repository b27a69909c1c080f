// Package gate loads a shared resource at most once and hands every caller
// the same in-flight result.
//
// A Gate is the deferred initialization step in front of the map engine:
// the first Ensure starts the load, every later Ensure (concurrent or not)
// gets the same future. A failed load is cached like a successful one and
// is never retried for the lifetime of the Gate.
package gate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-ixmaps/internal/future"
)

// LoadFunc produces the gated value.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Gate coalesces loads of a single value.
type Gate[T any] struct {
	name  string
	load  LoadFunc[T]
	log   zerolog.Logger
	mu    sync.Mutex
	fut   *future.Future[T]
	loads int
}

// New creates a gate. Nothing is loaded until the first Ensure.
func New[T any](name string, load LoadFunc[T], log zerolog.Logger) *Gate[T] {
	return &Gate[T]{name: name, load: load, log: log}
}

// Ensure returns the future of the one load, starting it on first use.
func (g *Gate[T]) Ensure() *future.Future[T] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fut != nil {
		return g.fut
	}

	g.fut = future.New[T]()
	g.loads++
	go g.run(g.fut)
	return g.fut
}

func (g *Gate[T]) run(fut *future.Future[T]) {
	g.log.Debug().Str("gate", g.name).Msg("loading")

	v, err := g.safeLoad()
	if err != nil {
		g.log.Error().Err(err).Str("gate", g.name).Msg("load failed")
		fut.Reject(err)
		return
	}

	g.log.Debug().Str("gate", g.name).Msg("loaded")
	fut.Resolve(v)
}

// safeLoad turns a panicking load into a failed load.
func (g *Gate[T]) safeLoad() (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return g.load(context.Background())
}

// Loaded returns the loaded value once the load has succeeded.
func (g *Gate[T]) Loaded() (T, bool) {
	g.mu.Lock()
	fut := g.fut
	g.mu.Unlock()

	var zero T
	if fut == nil {
		return zero, false
	}
	v, err, ok := fut.Result()
	if !ok || err != nil {
		return zero, false
	}
	return v, true
}

// Loads reports how many loads were started. It never exceeds one.
func (g *Gate[T]) Loads() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loads
}
