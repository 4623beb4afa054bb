// ABOUTME: CLI commands to inspect and manage vector collections
// ABOUTME: Provides exists, delete, and reset operations on the store
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCollectionsCmd creates the collections command group
func NewCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage vector collections",
		Long: `Manage vector collections in the configured backend.

Examples:
  omniwebui collections list
  omniwebui collections exists docs
  omniwebui collections delete docs
  omniwebui collections reset`,
	}

	cmd.AddCommand(newCollectionsListCmd())
	cmd.AddCommand(newCollectionsExistsCmd())
	cmd.AddCommand(newCollectionsDeleteCmd())
	cmd.AddCommand(newCollectionsResetCmd())

	return cmd
}

func newCollectionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every collection in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			names, err := eng.store.ListCollections(ctx)
			if err != nil {
				return fmt.Errorf("listing collections: %w", err)
			}

			if outputFormat == "json" {
				if names == nil {
					names = []string{}
				}
				jsonData, err := json.MarshalIndent(names, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
				return nil
			}

			if len(names) == 0 {
				if !quiet {
					fmt.Fprintln(cmd.OutOrStdout(), "No collections")
				}
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newCollectionsExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <collection>",
		Short: "Check whether a collection exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if eng.store.HasCollection(ctx, args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "Collection %s exists\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Collection %s does not exist\n", args[0])
			}
			return nil
		},
	}
}

func newCollectionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection>",
		Short: "Delete a collection and its vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.store.DeleteCollection(ctx, args[0]); err != nil {
				return fmt.Errorf("deleting collection: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %s\n", args[0])
			}
			return nil
		},
	}
}

func newCollectionsResetCmd() *cobra.Command {
	var resetForce bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every collection in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !resetForce {
				return fmt.Errorf("reset deletes all collections, re-run with --force to confirm")
			}

			ctx := cmd.Context()
			eng, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.store.Reset(ctx); err != nil {
				return fmt.Errorf("resetting store: %w", err)
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Store reset")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&resetForce, "force", false, "Confirm deletion of all collections")

	return cmd
}
