// ABOUTME: CLI command to query collections for relevant passages
// ABOUTME: Supports single and multi-collection queries with table or JSON output
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/omni-webui/omni-webui/internal/models"
)

var (
	queryCollections []string
	queryTopK        int
)

// NewQueryCmd creates the query command
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Query collections for relevant passages",
		Long: `Query one or more collections for relevant passages.

Embeds the query and ranks stored chunks by similarity. When more
than one collection is given, results are merged into a single
globally ranked list.

Examples:
  omniwebui query --collections docs "vector databases"
  omniwebui query --collections docs,reports --k 10 "quarterly revenue"
  omniwebui query --collections docs --format json "chunk overlap"`,
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().StringSliceVar(&queryCollections, "collections", []string{}, "Collections to search (comma-separated)")
	cmd.Flags().IntVar(&queryTopK, "k", 0, "Maximum results to return (0 uses RAG_TOP_K)")
	_ = cmd.MarkFlagRequired("collections")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryTopK < 0 {
		return fmt.Errorf("k must not be negative, got %d", queryTopK)
	}

	query := args[0]

	ctx := cmd.Context()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	k := queryTopK
	if k == 0 {
		k = eng.cfg.TopK
	}

	passages, err := eng.retriever.QueryCollections(ctx, queryCollections, query, k)
	if err != nil {
		return fmt.Errorf("querying collections: %w", err)
	}

	if len(passages) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No results found for query: %s\n", query)
		}
		return nil
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tSOURCE\tTEXT\n")
	fmt.Fprintf(w, "-----\t------\t----\n")
	for _, p := range passages {
		source := "(unknown)"
		if name, ok := p.Metadata[models.MetaName].(string); ok && name != "" {
			source = name
		}
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", p.Score, truncate(source, 24), truncate(p.Text, 60))
	}
	return w.Flush()
}
