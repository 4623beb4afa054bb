// ABOUTME: MCP tool handler implementations for the retrieval server
// ABOUTME: Maps pipeline and retriever calls to JSON tool results
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/omni-webui/omni-webui/internal/ingest"
	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/retrieval"
	"github.com/omni-webui/omni-webui/internal/vector"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	store     vector.Store
	pipeline  *ingest.Pipeline
	retriever *retrieval.Retriever
}

// passageResponse is the wire shape of one retrieved passage.
type passageResponse struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Metadata models.Metadata `json:"metadata,omitempty"`
	Score    float64         `json:"score"`
}

// ProcessText handles the process_text tool
func (h *Handlers) ProcessText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := request.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError("collection argument is required and must be a string"), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required and must be a string"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required and must be a string"), nil
	}
	mode := ingest.Mode(request.GetString("mode", ""))

	result, err := h.pipeline.Process(ctx, ingest.Request{
		Collection: collection,
		Name:       name,
		Content:    content,
		Mode:       mode,
	})
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrEmptyContent):
			return mcp.NewToolResultError("content is empty after cleanup"), nil
		case errors.Is(err, ingest.ErrDuplicateContent):
			return mcp.NewToolResultError("identical content already exists in this collection"), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
		}
	}

	responseJSON, err := json.Marshal(map[string]interface{}{
		"collection": result.Collection,
		"chunks":     result.ChunkCount,
		"skipped":    result.Skipped,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// QueryCollection handles the query_collection tool
func (h *Handlers) QueryCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := request.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError("collection argument is required and must be a string"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	k := request.GetInt("k", 0)

	passages, err := h.retriever.QueryDoc(ctx, collection, query, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return passagesResult(passages)
}

// QueryCollections handles the query_collections tool
func (h *Handlers) QueryCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := request.GetStringSlice("collections", nil)
	if len(names) == 0 {
		return mcp.NewToolResultError("collections argument is required and must be a non-empty array of strings"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	k := request.GetInt("k", 0)

	passages, err := h.retriever.QueryCollections(ctx, names, query, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return passagesResult(passages)
}

// DeleteCollection handles the delete_collection tool
func (h *Handlers) DeleteCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := request.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError("collection argument is required and must be a string"), nil
	}

	if err := h.store.DeleteCollection(ctx, collection); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete collection: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(`{"deleted":%q}`, collection)), nil
}

// ListCollections handles the list_collections tool
func (h *Handlers) ListCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.store.ListCollections(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list collections: %v", err)), nil
	}
	if names == nil {
		names = []string{}
	}
	payload, err := json.Marshal(map[string]interface{}{"collections": names})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode collections: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// Reset handles the reset tool
func (h *Handlers) Reset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.store.Reset(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reset store: %v", err)), nil
	}
	return mcp.NewToolResultText(`{"reset":true}`), nil
}

// RetrievalStatus handles the retrieval_status tool
func (h *Handlers) RetrievalStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(map[string]interface{}{
		"state": h.retriever.State().String(),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func passagesResult(passages []retrieval.Passage) (*mcp.CallToolResult, error) {
	response := make([]passageResponse, len(passages))
	for i, p := range passages {
		response[i] = passageResponse{
			ID:       p.ID,
			Text:     p.Text,
			Metadata: p.Metadata,
			Score:    p.Score,
		}
	}
	responseJSON, err := json.Marshal(map[string]interface{}{
		"results": response,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
