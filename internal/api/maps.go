package api

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-ixmaps/internal/service"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

type MapOutput struct {
	Body MapBody
}

// MapBody wraps MapInfo so responses carry state-dependent actions.
type MapBody struct {
	service.MapInfo
}

// Actions offers calls only while the map can still take them.
func (b MapBody) Actions() []Action {
	href := "/api/v1/maps/" + b.ID
	actions := []Action{{Rel: "delete", Href: href, Method: "DELETE", Title: "Delete map"}}
	if b.Error == "" && b.State != "failed" {
		actions = append(actions,
			Action{Rel: "call", Href: href + "/calls", Method: "POST", Title: "Call a map method"},
			Action{Rel: "add-layer", Href: href + "/layers", Method: "POST", Title: "Add a layer"},
		)
	}
	return actions
}

type MapsOutput struct {
	Body []service.MapInfo
}

type CallBody struct {
	Method string `json:"method" required:"true" doc:"Method name" example:"view"`
	Args   []any  `json:"args,omitempty" doc:"Method arguments" example:"[[51.4,19.8],3.8]"`
}

type MapThemeInput struct {
	IDInput
	Theme string `path:"theme" doc:"Stored theme ID" example:"population"`
}

// RegisterMaps registers map routes.
func (h *APIHandler) RegisterMaps(api huma.API) {
	huma.Get(api, "/api/v1/maps", h.GetMaps, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps", h.CreateMap, huma.OperationTags("maps"))
	huma.Get(api, "/api/v1/maps/{id}", h.GetMap, huma.OperationTags("maps"))
	huma.Delete(api, "/api/v1/maps/{id}", h.DeleteMap, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/{id}/calls", h.CallMap, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/{id}/layers", h.AddMapLayer, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/{id}/themes/{theme}", h.AddMapTheme, huma.OperationTags("maps"))
}

func (h *APIHandler) maps() (*service.MapService, error) {
	if h.svc == nil || h.svc.Maps == nil {
		return nil, huma.Error503ServiceUnavailable("map service not available")
	}
	return h.svc.Maps, nil
}

func (h *APIHandler) GetMaps(ctx context.Context, input *struct{}) (*MapsOutput, error) {
	if h.svc == nil || h.svc.Maps == nil {
		return &MapsOutput{Body: []service.MapInfo{}}, nil
	}
	return &MapsOutput{Body: h.svc.Maps.List()}, nil
}

func (h *APIHandler) CreateMap(ctx context.Context, input *struct{ Body service.CreateMap }) (*struct {
	Location string `header:"Location"`
	Body     MapBody
}, error) {
	maps, err := h.maps()
	if err != nil {
		return nil, err
	}
	info, err := maps.Create(input.Body)
	if err != nil {
		return nil, statusError(err)
	}
	return &struct {
		Location string `header:"Location"`
		Body     MapBody
	}{Location: fmt.Sprintf("/api/v1/maps/%s", info.ID), Body: MapBody{info}}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *IDInput) (*MapOutput, error) {
	maps, err := h.maps()
	if err != nil {
		return nil, err
	}
	info, ok := maps.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("map not found")
	}
	return &MapOutput{Body: MapBody{info}}, nil
}

func (h *APIHandler) DeleteMap(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	maps, err := h.maps()
	if err != nil {
		return nil, err
	}
	if err := maps.Delete(input.ID); err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Map deleted"}}, nil
}

func (h *APIHandler) CallMap(ctx context.Context, input *struct {
	IDInput
	Body CallBody
}) (*MapOutput, error) {
	maps, err := h.maps()
	if err != nil {
		return nil, err
	}
	info, err := maps.Call(input.ID, input.Body.Method, input.Body.Args)
	if err != nil {
		return nil, statusError(err)
	}
	return &MapOutput{Body: MapBody{info}}, nil
}

func (h *APIHandler) AddMapLayer(ctx context.Context, input *struct {
	IDInput
	Body theme.Spec
}) (*MapOutput, error) {
	maps, err := h.maps()
	if err != nil {
		return nil, err
	}
	info, err := maps.AddLayer(input.ID, input.Body)
	if err != nil {
		return nil, statusError(err)
	}
	return &MapOutput{Body: MapBody{info}}, nil
}

func (h *APIHandler) AddMapTheme(ctx context.Context, input *MapThemeInput) (*MapOutput, error) {
	maps, err := h.maps()
	if err != nil {
		return nil, err
	}
	if h.svc.Themes == nil {
		return nil, huma.Error503ServiceUnavailable("theme store not available")
	}
	t, ok := h.svc.Themes.Get(input.Theme)
	if !ok {
		return nil, huma.Error404NotFound("theme not found")
	}
	info, err := maps.AddTheme(input.ID, t)
	if err != nil {
		return nil, statusError(err)
	}
	return &MapOutput{Body: MapBody{info}}, nil
}
