// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-ixmaps/internal/mapbuilder"
	"github.com/joeblew999/plat-ixmaps/internal/service"
)

// Version is the API version reported by /health and the OpenAPI document.
const Version = "1.0.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Maps    *service.MapService
	Themes  *service.ThemeStore
	Sources *service.SourceService
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Resource ID" example:"world"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type MethodsBody struct {
	Methods []string `json:"methods" doc:"Methods maps accept through /calls" example:"[\"view\",\"layer\"]"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterMethods registers the method allow-list route.
func (h *APIHandler) RegisterMethods(api huma.API) {
	huma.Get(api, "/api/v1/methods", h.GetMethods, huma.OperationTags("maps"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Sources == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Sources.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list sources", err)
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetMethods(ctx context.Context, input *struct{}) (*struct{ Body MethodsBody }, error) {
	var names []string
	for _, m := range mapbuilder.Methods() {
		names = append(names, string(m))
	}
	return &struct{ Body MethodsBody }{Body: MethodsBody{Methods: names}}, nil
}
