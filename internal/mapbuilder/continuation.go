package mapbuilder

import (
	"fmt"

	"github.com/joeblew999/plat-ixmaps/internal/future"
)

// FulfilledFunc receives the ready map. Its result resolves the future
// returned by Then; its error rejects it.
type FulfilledFunc func(Handle) (any, error)

// RejectedFunc receives the builder's failure.
type RejectedFunc func(error)

type continuation struct {
	onFulfilled FulfilledFunc
	onRejected  RejectedFunc
	fut         *future.Future[any]
}

func (c *continuation) fulfil(h Handle) {
	if c.onFulfilled == nil {
		c.fut.Resolve(h)
		return
	}
	v, err := c.callFulfilled(h)
	if err != nil {
		c.reject(err)
		return
	}
	c.fut.Resolve(v)
}

func (c *continuation) callFulfilled(h Handle) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.onFulfilled(h)
}

func (c *continuation) reject(err error) {
	if c.onRejected != nil {
		c.onRejected(err)
	}
	c.fut.Reject(err)
}

// Then runs onFulfilled with the map once the builder is Ready, or
// onRejected with the cause once it has Failed. Either may be nil.
//
// A builder keeps a single pending continuation: calling Then again before
// the builder settles replaces the earlier registration, whose future is
// rejected with ErrContinuationReplaced and whose callbacks never run.
func (b *Builder) Then(onFulfilled FulfilledFunc, onRejected RejectedFunc) *future.Future[any] {
	c := &continuation{onFulfilled: onFulfilled, onRejected: onRejected, fut: future.New[any]()}

	b.mu.Lock()
	switch {
	case b.state == Ready && !b.replaying:
		h := b.handle
		b.mu.Unlock()
		c.fulfil(h)
	case b.state == Failed:
		err := b.err
		b.mu.Unlock()
		c.reject(err)
	default:
		displaced := b.cont
		b.cont = c
		b.mu.Unlock()
		if displaced != nil {
			b.log.Warn().Str("target", b.target).Msg("pending Then replaced")
			displaced.fut.Reject(ErrContinuationReplaced)
		}
	}
	return c.fut
}

// Catch is Then without a fulfilment callback.
func (b *Builder) Catch(onRejected RejectedFunc) *future.Future[any] {
	return b.Then(nil, onRejected)
}
