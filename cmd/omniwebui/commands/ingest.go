// ABOUTME: CLI command to ingest documents into a collection
// ABOUTME: Handles file and stdin input and reports chunk counts
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omni-webui/omni-webui/internal/ingest"
)

var (
	ingestCollection string
	ingestName       string
	ingestMode       string
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a document into a collection",
		Long: `Ingest a document into a collection.

Splits the document into chunks, embeds them, and stores the
vectors. Reads from a file argument or from stdin.

Examples:
  omniwebui ingest --collection docs notes.md
  cat report.txt | omniwebui ingest --collection reports --name q3
  omniwebui ingest --collection docs --mode overwrite notes.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestCollection, "collection", "", "Target collection (required)")
	cmd.Flags().StringVar(&ingestName, "name", "", "Document name (defaults to file name)")
	cmd.Flags().StringVar(&ingestMode, "mode", "", "Ingest mode: overwrite or add")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	var content string
	name := ingestName
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		content = string(data)
		if name == "" {
			name = filepath.Base(args[0])
		}
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		content = string(data)
		if name == "" {
			name = "stdin"
		}
	}

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("no content provided")
	}

	ctx := cmd.Context()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.pipeline.Process(ctx, ingest.Request{
		Collection: ingestCollection,
		Name:       name,
		Content:    content,
		Mode:       ingest.Mode(ingestMode),
	})
	if errors.Is(err, ingest.ErrDuplicateContent) {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Content already indexed in %s, nothing to do\n", ingestCollection)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingesting document: %w", err)
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	if result.Skipped {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Collection %s already exists, skipped (use --mode overwrite or add)\n", result.Collection)
		}
		return nil
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s into %s (%d chunks)\n", name, result.Collection, result.ChunkCount)
	}
	return nil
}
