// ABOUTME: MCP tool definitions and registration for the retrieval server
// ABOUTME: Defines JSON schemas for ingestion, query, and maintenance tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/omni-webui/omni-webui/internal/ingest"
	"github.com/omni-webui/omni-webui/internal/retrieval"
	"github.com/omni-webui/omni-webui/internal/vector"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, store vector.Store, pipeline *ingest.Pipeline, retriever *retrieval.Retriever) *Handlers {
	handlers := &Handlers{
		store:     store,
		pipeline:  pipeline,
		retriever: retriever,
	}

	// 1. process_text - Chunk, embed, and store a document
	server.AddTool(mcp.Tool{
		Name:        "process_text",
		Description: "Chunk, embed, and store text content in a named collection for later retrieval.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Target collection name",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Document name recorded in chunk metadata",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Raw text content to ingest",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "What to do when the collection exists: 'overwrite' replaces it, 'add' merges with duplicate detection, anything else skips",
				},
			},
			Required: []string{"collection", "name", "content"},
		},
	}, handlers.ProcessText)

	// 2. query_collection - Retrieve passages from one collection
	server.AddTool(mcp.Tool{
		Name:        "query_collection",
		Description: "Retrieve the most relevant passages for a query from one collection.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of passages to return (default: 3)",
					"default":     3,
				},
			},
			Required: []string{"collection", "query"},
		},
	}, handlers.QueryCollection)

	// 3. query_collections - Retrieve passages across collections
	server.AddTool(mcp.Tool{
		Name:        "query_collections",
		Description: "Retrieve the most relevant passages for a query across several collections, merged into one ranking.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collections": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Collections to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of passages to return (default: 3)",
					"default":     3,
				},
			},
			Required: []string{"collections", "query"},
		},
	}, handlers.QueryCollections)

	// 4. list_collections - Enumerate collections
	server.AddTool(mcp.Tool{
		Name:        "list_collections",
		Description: "List every collection in the vector store.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListCollections)

	// 5. delete_collection - Drop one collection
	server.AddTool(mcp.Tool{
		Name:        "delete_collection",
		Description: "Delete a collection and all of its stored chunks.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection to delete",
				},
			},
			Required: []string{"collection"},
		},
	}, handlers.DeleteCollection)

	// 6. reset - Drop every collection
	server.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Delete every collection in the vector store. Irreversible.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.Reset)

	// 7. retrieval_status - Report the retrieval state
	server.AddTool(mcp.Tool{
		Name:        "retrieval_status",
		Description: "Report whether retrieval is running dense-only, hybrid, or degraded.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.RetrievalStatus)

	return handlers
}
