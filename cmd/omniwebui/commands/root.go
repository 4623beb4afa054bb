// ABOUTME: Root CLI command with global flags and subcommand registration
// ABOUTME: Defines the omniwebui command tree for ingestion and retrieval
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
 ██████  ███    ███ ███    ██ ██
██    ██ ████  ████ ████   ██ ██
██    ██ ██ ████ ██ ██ ██  ██ ██
██    ██ ██  ██  ██ ██  ██ ██ ██
 ██████  ██      ██ ██   ████ ██
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "omniwebui",
		Short: "Retrieval engine for document collections",
		Long: banner + `
Omni WebUI retrieval engine.

Chunks documents, embeds them into a vector store, and answers
similarity queries with optional hybrid reranking. Supports Bolt,
SQLite, Milvus, and Qdrant backends selected via environment
configuration.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format (auto, table, json)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewQueryCmd())
	cmd.AddCommand(NewCollectionsCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
