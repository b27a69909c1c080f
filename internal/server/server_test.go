package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/service"
)

func TestServer_EndToEnd(t *testing.T) {
	srv := New(Config{
		Host:        "localhost",
		Port:        "0",
		DataDir:     t.TempDir(),
		MapDefaults: mapbuilder.Options{"basemap": "OSM"},
		Preload:     true,
	})
	defer srv.Close()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "builtin:memory")

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"id": "world", "options": {"mode": "pan"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maps", body)
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var info service.MapInfo
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/maps/world", nil))
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		return info.State == "ready"
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, mapbuilder.Options{"basemap": "OSM", "mode": "pan"}, info.Map.Options)
	assert.Equal(t, 1, srv.Runtime().Loads())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_OpenAPI(t *testing.T) {
	srv := New(Config{Host: "localhost", Port: "8086", DataDir: t.TempDir()})
	defer srv.Close()

	spec := srv.OpenAPI()
	for _, path := range []string{
		"/health", "/api/v1/info", "/api/v1/maps", "/api/v1/maps/{id}/calls",
		"/api/v1/maps/{id}/layers", "/api/v1/themes", "/api/v1/events", "/api/v1/query/preview",
	} {
		assert.Contains(t, spec.Paths, path)
	}
}
