package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) overview(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	o, err := h.t.Overview(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, o)
}

func (h *handlers) programs(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	programs, err := h.t.Programs(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, programs)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
