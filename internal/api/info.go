package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-ixmaps/internal/loader"
)

type InfoHandler struct {
	engine  string
	dataDir string
	dbOK    bool
}

func NewInfoHandler(engine, dataDir string, dbOK bool) *InfoHandler {
	return &InfoHandler{engine: engine, dataDir: dataDir, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Engine   string   `json:"engine" doc:"Map engine source" example:"builtin:memory"`
	Engines  []string `json:"engines" doc:"Registered map engines"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"maps", "themes", "geojson", "events"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-ixmaps",
		Version:  Version,
		Engine:   h.engine,
		Engines:  loader.Engines(),
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: features,
	}}, nil
}
