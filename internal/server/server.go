package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-ixmaps/internal/api"
	"github.com/joeblew999/plat-ixmaps/internal/api/events"
	"github.com/joeblew999/plat-ixmaps/internal/db"
	"github.com/joeblew999/plat-ixmaps/internal/engine"
	"github.com/joeblew999/plat-ixmaps/internal/logging"
	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/service"
	"github.com/joeblew999/plat-ixmaps/pkg/ixmaps"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// Engine is the map engine source. Empty selects the memory engine
	// reading DataDir.
	Engine string
	// DuckDB opens <DataDir>/duckdb/ixmaps.duckdb for query layers.
	DuckDB bool
	// MapDefaults are merged under the options of every map.
	MapDefaults mapbuilder.Options
	// Preload starts the engine load at startup instead of on first map.
	Preload bool
	Logger  *zerolog.Logger
}

// Server is the ixmaps HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sql.DB
	bus      *service.EventBus
	runtime  *ixmaps.Runtime
	services *api.Services
}

// New creates a new ixmaps server.
func New(cfg Config) *Server {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-ixmaps API", api.Version)
	humaConfig.Info.Description = "Embedded interactive maps: map builders with queued calls, layer themes and map events."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		bus:     service.NewEventBus(),
	}

	// DuckDB backs query layers; without it they are drawn unsized.
	if cfg.DuckDB {
		conn, err := db.Get(db.Config{
			DataDir:    cfg.DataDir,
			DBName:     "ixmaps",
			Extensions: []string{"spatial"},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("duckdb unavailable, query layers will not be sized")
		} else {
			s.db = conn
		}
	}

	source := cfg.Engine
	if source == "" {
		source = engine.Source(engine.Config{DataDir: cfg.DataDir, DuckDB: s.db != nil})
	}
	s.runtime = ixmaps.New(source, logger)

	s.services = &api.Services{
		Maps:    service.NewMapService(s.runtime, s.bus, cfg.MapDefaults),
		Themes:  service.NewThemeStore(cfg.DataDir, s.bus),
		Sources: service.NewSourceService(cfg.DataDir),
	}

	s.routes()
	s.handler = s.mux
	if cfg.Logger != nil {
		s.handler = logging.RequestLogger(logger, s.mux)
	}

	if cfg.Preload {
		s.runtime.Init()
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI document of the server.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Runtime returns the map runtime.
func (s *Server) Runtime() *ixmaps.Runtime {
	return s.runtime
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.runtime.Source(), s.config.DataDir, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewQueryHandler(s.db).RegisterRoutes(s.humaAPI)

	// Datastar SSE stream of map and theme events
	events.New(s.bus).RegisterRoutes(s.humaAPI)

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Link", `</health>; rel="health"`)
	w.Header().Add("Link", `</openapi.json>; rel="service-desc"`)
	json.NewEncoder(w).Encode(map[string]any{
		"service": "plat-ixmaps",
		"status":  "running",
		"engine":  s.runtime.Source(),
		"loads":   s.runtime.Loads(),
	})
}
