package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_CoalescesConcurrentEnsure(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	g := New("test", func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "engine", nil
	}, zerolog.Nop())

	var wg sync.WaitGroup
	futs := make(chan any, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			futs <- g.Ensure()
		}()
	}
	wg.Wait()
	close(futs)

	first := g.Ensure()
	for f := range futs {
		assert.Same(t, first, f)
	}

	close(release)
	v, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "engine", v)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, g.Loads())

	loaded, ok := g.Loaded()
	assert.True(t, ok)
	assert.Equal(t, "engine", loaded)
}

func TestGate_FailureIsCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("network down")

	g := New("test", func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 0, boom
	}, zerolog.Nop())

	_, err := g.Ensure().Wait(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = g.Ensure().Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())

	_, ok := g.Loaded()
	assert.False(t, ok)
}

func TestGate_LazyUntilEnsure(t *testing.T) {
	started := make(chan struct{}, 1)
	g := New("test", func(ctx context.Context) (int, error) {
		started <- struct{}{}
		return 1, nil
	}, zerolog.Nop())

	select {
	case <-started:
		t.Fatal("load started before Ensure")
	case <-time.After(10 * time.Millisecond):
	}
	assert.Equal(t, 0, g.Loads())

	g.Ensure()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("load never started")
	}
}

func TestGate_PanicRejectsFuture(t *testing.T) {
	g := New("test", func(ctx context.Context) (int, error) {
		panic("engine exploded")
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := g.Ensure().Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine exploded")

	_, ok := g.Loaded()
	assert.False(t, ok)
}
