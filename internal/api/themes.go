package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-ixmaps/internal/service"
	"github.com/joeblew999/plat-ixmaps/internal/theme"
)

type ThemeOutput struct {
	Body service.Theme
}

type ThemesOutput struct {
	Body []service.Theme
}

// NewThemeBody is a builder spec plus an optional ID.
type NewThemeBody struct {
	ID string `json:"id,omitempty" maxLength:"64" doc:"Theme ID, derived from the name when empty" example:"population"`
	theme.Spec
}

// RegisterThemes registers theme CRUD routes.
func (h *APIHandler) RegisterThemes(api huma.API) {
	huma.Get(api, "/api/v1/themes", h.GetThemes, huma.OperationTags("themes"))
	huma.Post(api, "/api/v1/themes", h.CreateTheme, huma.OperationTags("themes"))
	huma.Get(api, "/api/v1/themes/{id}", h.GetTheme, huma.OperationTags("themes"))
	huma.Put(api, "/api/v1/themes/{id}", h.PutTheme, huma.OperationTags("themes"))
	huma.Delete(api, "/api/v1/themes/{id}", h.DeleteTheme, huma.OperationTags("themes"))
}

func (h *APIHandler) themes() (*service.ThemeStore, error) {
	if h.svc == nil || h.svc.Themes == nil {
		return nil, huma.Error503ServiceUnavailable("theme store not available")
	}
	return h.svc.Themes, nil
}

func (h *APIHandler) GetThemes(ctx context.Context, input *struct{}) (*ThemesOutput, error) {
	if h.svc == nil || h.svc.Themes == nil {
		return &ThemesOutput{Body: []service.Theme{}}, nil
	}
	return &ThemesOutput{Body: h.svc.Themes.List()}, nil
}

func (h *APIHandler) CreateTheme(ctx context.Context, input *struct{ Body NewThemeBody }) (*ThemeOutput, error) {
	store, err := h.themes()
	if err != nil {
		return nil, err
	}
	created, err := store.Create(input.Body.ID, theme.Build(input.Body.Spec))
	if err != nil {
		return nil, statusError(err)
	}
	return &ThemeOutput{Body: created}, nil
}

func (h *APIHandler) GetTheme(ctx context.Context, input *IDInput) (*ThemeOutput, error) {
	store, err := h.themes()
	if err != nil {
		return nil, err
	}
	t, ok := store.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("theme not found")
	}
	return &ThemeOutput{Body: t}, nil
}

func (h *APIHandler) PutTheme(ctx context.Context, input *struct {
	IDInput
	Body theme.Spec
}) (*ThemeOutput, error) {
	store, err := h.themes()
	if err != nil {
		return nil, err
	}
	updated, err := store.Update(input.ID, theme.Build(input.Body))
	if err != nil {
		return nil, statusError(err)
	}
	return &ThemeOutput{Body: updated}, nil
}

func (h *APIHandler) DeleteTheme(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	store, err := h.themes()
	if err != nil {
		return nil, err
	}
	if err := store.Delete(input.ID); err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Theme deleted"}}, nil
}
