// Package mapbuilder implements the chainable map builder.
//
// A Builder is returned before its map exists. Calls made while the engine
// loads are queued and replayed, in order, against the map once the engine
// factory produces it; calls made afterwards go straight to the map. The
// builder ends in exactly one of two terminal states, Ready or Failed.
//
// Errors are recorded on the builder and logged rather than returned from
// chainable methods. Once an error is recorded, further chainable calls are
// ignored. Call is the strict counterpart that returns errors directly.
package mapbuilder

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-ixmaps/internal/gate"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

// State is the builder lifecycle state.
type State int

const (
	Pending State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithCallback installs a legacy ready callback. It is called once with the
// map instead of replaying queued calls, which are dropped.
func WithCallback(fn func(Handle)) Option {
	return func(b *Builder) { b.legacy = fn }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// Builder queues chainable map calls until the engine produces the map.
//
// Map handle methods run with calls serialized per builder; they must not
// block on the builder they were dispatched from.
type Builder struct {
	target string
	opts   Options
	legacy func(Handle)
	log    zerolog.Logger

	mu        sync.Mutex
	state     State
	queue     queue
	handle    Handle
	err       error
	cont      *continuation
	draining  bool
	replaying bool
	settled   chan struct{}
}

// New creates a builder for target and starts loading the engine through g.
func New(g *gate.Gate[Factory], target string, opts Options, options ...Option) *Builder {
	b := &Builder{
		target:  target,
		opts:    opts,
		log:     log.Logger,
		settled: make(chan struct{}),
	}
	for _, o := range options {
		o(b)
	}
	go b.start(g)
	return b
}

func (b *Builder) start(g *gate.Gate[Factory]) {
	factory, err := g.Ensure().Wait(context.Background())
	if err != nil {
		b.fail(fmt.Errorf("%w: %w", ErrScriptLoad, err), "initialization")
		return
	}
	if factory == nil {
		b.fail(fmt.Errorf("%w: engine provided no map factory", ErrScriptLoad), "initialization")
		return
	}
	if err := b.produce(factory); err != nil {
		b.fail(fmt.Errorf("%w: %w", ErrFactory, err), "Map creation")
	}
}

func (b *Builder) produce(factory Factory) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return factory(b.target, b.opts, b.ready)
}

func (b *Builder) ready(h Handle) {
	b.mu.Lock()
	if b.state != Pending {
		state := b.state
		b.mu.Unlock()
		b.log.Warn().Str("target", b.target).Stringer("state", state).Msg("map produced after builder settled, ignored")
		return
	}
	if isNil(h) {
		err := fmt.Errorf("%w: %w", ErrFactory, ErrNoHandle)
		cont := b.recordLocked(err, "initialization")
		b.mu.Unlock()
		if cont != nil {
			cont.reject(err)
		}
		return
	}
	b.handle = h
	b.state = Ready

	if b.legacy != nil {
		if n := b.queue.len(); n > 0 {
			b.log.Debug().Int("calls", n).Msg("legacy callback mode, queued calls dropped")
		}
		b.queue.clear()
		b.closeSettledLocked()
		b.mu.Unlock()
		b.callLegacy(h)
		return
	}

	b.replaying = true
	b.draining = true
	method, err := b.drainLocked()
	var rejected *continuation
	if err != nil {
		rejected = b.recordLocked(err, method)
	}
	b.replaying = false
	cont := b.cont
	b.cont = nil
	b.closeSettledLocked()
	b.mu.Unlock()

	if rejected != nil {
		rejected.reject(err)
	}
	if cont != nil {
		cont.fulfil(h)
	}
}

func (b *Builder) callLegacy(h Handle) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("error in Map callback")
		}
	}()
	b.legacy(h)
}

func (b *Builder) fail(err error, method string) {
	b.mu.Lock()
	cont := b.recordLocked(err, method)
	b.mu.Unlock()
	if cont != nil {
		cont.reject(err)
	}
}

// recordLocked logs err, keeps the first error as the builder's cause and
// moves a pending builder to Failed. It hands back the continuation to
// reject, if one was waiting.
func (b *Builder) recordLocked(err error, method string) *continuation {
	b.log.Error().Err(err).Str("target", b.target).Str("method", method).Msgf("ixmaps.Map error in .%s()", method)

	if b.err == nil {
		b.err = err
	}
	if b.state == Pending {
		b.state = Failed
		b.queue.clear()
		b.closeSettledLocked()
	}
	cont := b.cont
	b.cont = nil
	return cont
}

func (b *Builder) closeSettledLocked() {
	select {
	case <-b.settled:
	default:
		close(b.settled)
	}
}

// drainLocked applies queued calls in order with the lock released around
// each call, so calls arriving meanwhile join the end of the queue. The
// first failure discards the rest. Called and returns with mu held.
func (b *Builder) drainLocked() (string, error) {
	defer func() { b.draining = false }()

	for {
		call, ok := b.queue.pop()
		if !ok {
			return "", nil
		}
		h := b.handle
		replay := b.replaying

		b.mu.Unlock()
		err := safeApply(call, h)
		b.mu.Lock()

		if err != nil {
			b.queue.clear()
			if replay {
				err = fmt.Errorf("%w: %w", ErrQueueReplay, err)
			}
			return string(call.Method()), &MethodError{Method: string(call.Method()), Err: err}
		}
	}
}

func safeApply(c Call, h Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.apply(h)
}

// invoke queues c or dispatches it. It returns the error c caused, if c was
// dispatched synchronously and failed.
func (b *Builder) invoke(c Call) error {
	b.mu.Lock()
	if b.err != nil {
		b.mu.Unlock()
		return nil
	}
	b.queue.push(c)
	if b.state != Ready || b.draining {
		b.mu.Unlock()
		return nil
	}

	b.draining = true
	method, err := b.drainLocked()
	var cont *continuation
	if err != nil {
		cont = b.recordLocked(err, method)
	}
	b.mu.Unlock()

	if cont != nil {
		cont.reject(err)
	}
	return err
}

// View centers the map. Use LatLng to build center from latitude/longitude.
func (b *Builder) View(center orb.Point, zoom float64) *Builder {
	b.invoke(ViewCall{Center: center, Zoom: zoom})
	return b
}

// Layer adds a ready-made layer definition.
func (b *Builder) Layer(def *theme.Definition) *Builder {
	b.invoke(LayerCall{Definition: def})
	return b
}

// LayerNamed starts a layer definition whose Define adds the layer to this
// map and returns the builder.
func (b *Builder) LayerNamed(name string) *theme.Builder[*Builder] {
	return theme.Bind(name, func(def *theme.Definition) *Builder {
		return b.Layer(def)
	})
}

// Options sets map options.
func (b *Builder) Options(opts Options) *Builder {
	b.invoke(OptionsCall{Options: opts})
	return b
}

// On registers an event handler.
func (b *Builder) On(event string, fn EventFunc) *Builder {
	b.invoke(OnCall{Event: event, Handler: fn})
	return b
}

// Attribution sets the attribution text.
func (b *Builder) Attribution(text string) *Builder {
	b.invoke(AttributionCall{Text: text})
	return b
}

// Legend sets legend content, an HTML string or URL.
func (b *Builder) Legend(legend string) *Builder {
	b.invoke(LegendCall{Legend: legend})
	return b
}

// Require loads an additional resource into the map.
func (b *Builder) Require(path string) *Builder {
	b.invoke(RequireCall{Path: path})
	return b
}

// Local sets the localized text for a global string.
func (b *Builder) Local(global, local string) *Builder {
	b.invoke(LocalCall{Global: global, Local: local})
	return b
}

// Target returns the container the map was embedded into.
func (b *Builder) Target() string {
	return b.target
}

// State returns the lifecycle state.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the first recorded error.
func (b *Builder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Handle returns the map once ready.
func (b *Builder) Handle() (Handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle, b.state == Ready
}

// Queued returns the number of calls waiting for the map.
func (b *Builder) Queued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}

// Settled is closed once the builder is Ready (after replay) or Failed.
func (b *Builder) Settled() <-chan struct{} {
	return b.settled
}

// Wait blocks until the builder settles or ctx is done.
func (b *Builder) Wait(ctx context.Context) (Handle, error) {
	select {
	case <-b.settled:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Failed {
		return nil, b.err
	}
	return b.handle, nil
}

func isNil(h Handle) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
