package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/service"
)

func TestStatusError(t *testing.T) {
	_, unsupported := mapbuilder.Decode("flyTo")
	require.ErrorIs(t, unsupported, mapbuilder.ErrUnsupportedMethod)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("map %q: %w", "m", service.ErrNotFound), http.StatusNotFound},
		{"exists", fmt.Errorf("map %q: %w", "m", service.ErrExists), http.StatusConflict},
		{"invalid", service.ErrInvalid, http.StatusBadRequest},
		{"unsupported", unsupported, http.StatusBadRequest},
		{"failed by unsupported call", fmt.Errorf("%w: %w", mapbuilder.ErrBuilderFailed, unsupported), http.StatusConflict},
		{"rejected by map", &mapbuilder.MethodError{Method: "view", Err: errors.New("bad zoom")}, http.StatusUnprocessableEntity},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var se huma.StatusError
			require.ErrorAs(t, statusError(tt.err), &se)
			assert.Equal(t, tt.want, se.GetStatus())
		})
	}
}
