package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/service"
)

// statusError maps service and builder errors to HTTP errors.
func statusError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, mapbuilder.ErrBuilderFailed):
		// Before the 400 cases: the wrapped cause may be one of them.
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrInvalid),
		errors.Is(err, mapbuilder.ErrUnsupportedMethod),
		errors.Is(err, mapbuilder.ErrInvalidArgs):
		return huma.Error400BadRequest(err.Error())
	}

	// The map rejected a dispatched call.
	var me *mapbuilder.MethodError
	if errors.As(err, &me) {
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
