package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-ixmaps/internal/db"
)

// QueryHandler previews the DuckDB queries behind query layers.
type QueryHandler struct {
	db *sql.DB
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(conn *sql.DB) *QueryHandler {
	return &QueryHandler{db: conn}
}

// RegisterRoutes registers query routes with Huma.
func (h *QueryHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("data"))
	huma.Post(api, "/api/v1/query/preview", h.Preview, huma.OperationTags("data"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *QueryHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out.Body.Tables = append(out.Body.Tables, name)
		}
	}
	return out, nil
}

// PreviewInput is the input for a layer query preview.
type PreviewInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"Layer data query" example:"SELECT * FROM range(10)"`
		Limit int    `json:"limit,omitempty" minimum:"1" maximum:"1000" default:"20" doc:"Rows to return"`
	}
}

// PreviewOutput is the response for a query preview.
type PreviewOutput struct {
	Body struct {
		Columns []string         `json:"columns" doc:"Column names"`
		Rows    []map[string]any `json:"rows" doc:"First rows of the result"`
		Total   int64            `json:"total" doc:"Rows the query yields in total"`
	}
}

// Preview runs a layer query and returns its first rows and total size.
func (h *QueryHandler) Preview(ctx context.Context, input *PreviewInput) (*PreviewOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	total, err := db.Count(ctx, h.db, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}

	limit := input.Body.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	out := &PreviewOutput{}
	out.Body.Columns = columns
	out.Body.Rows = []map[string]any{}
	out.Body.Total = total
	for rows.Next() && len(out.Body.Rows) < limit {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			continue
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out.Body.Rows = append(out.Body.Rows, row)
	}
	return out, nil
}
