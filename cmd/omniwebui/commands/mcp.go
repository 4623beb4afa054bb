// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to use the retrieval engine via stdio
package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/omni-webui/omni-webui/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the retrieval engine as an MCP (Model Context Protocol)
server, exposing ingestion and query tools over stdio.

Configure in Claude Desktop's config file to enable retrieval tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  omniwebui mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "omniwebui": {
  #       "command": "omniwebui",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	server := mcpserver.NewMCPServer(
		"Retrieval Engine",
		versionInfo.Version,
	)
	mcp.RegisterTools(server, eng.store, eng.pipeline, eng.retriever)

	if !quiet {
		log.Printf("Retrieval MCP server starting on stdio (backend=%s, state=%s)...",
			eng.cfg.VectorDB, eng.retriever.State())
	}
	if err := mcpserver.ServeStdio(server); err != nil {
		return fmt.Errorf("serving MCP: %w", err)
	}
	return nil
}
