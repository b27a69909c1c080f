package mapbuilder

import (
	"errors"
	"fmt"
)

var (
	// ErrScriptLoad means the map engine could not be loaded.
	ErrScriptLoad = errors.New("map engine failed to load")
	// ErrFactory means the engine factory failed to start producing a map.
	ErrFactory = errors.New("map creation failed")
	// ErrNoHandle means the factory reported readiness without a map.
	ErrNoHandle = errors.New("map initialization returned no map")
	// ErrUnsupportedMethod means a method outside the allow-list was called.
	ErrUnsupportedMethod = errors.New("method not supported by the chaining API")
	// ErrMissingHandleMethod means the produced map lacks an allow-listed method.
	ErrMissingHandleMethod = errors.New("method does not exist on map object")
	// ErrQueueReplay marks a failure while replaying queued calls.
	ErrQueueReplay = errors.New("queued call failed")
	// ErrInvalidArgs means a dynamically dispatched call had unusable arguments.
	ErrInvalidArgs = errors.New("invalid arguments")
	// ErrBuilderFailed is returned by Call once the builder has failed.
	ErrBuilderFailed = errors.New("map builder has failed")
	// ErrContinuationReplaced rejects a Then future displaced by a later Then.
	ErrContinuationReplaced = errors.New("continuation replaced by a later Then")
)

// MethodError reports the operation a builder error happened in.
type MethodError struct {
	Method string
	Err    error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("ixmaps.Map error in .%s(): %v", e.Method, e.Err)
}

func (e *MethodError) Unwrap() error {
	return e.Err
}

func unsupported(name string) error {
	return &MethodError{
		Method: name,
		Err: fmt.Errorf("%w: %q (supported methods: %s); to call it, use the map handle from Then",
			ErrUnsupportedMethod, name, supportedList()),
	}
}
