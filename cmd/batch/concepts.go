package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/shotrank/internal/domain"
)

func newConceptsCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "Manage the concept vocabulary",
	}

	cmd.AddCommand(newConceptsImportCmd(global))
	cmd.AddCommand(newConceptsRefreshCmd(global))

	return cmd
}

func newConceptsImportCmd(global *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import concepts from a JSON vocabulary file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open vocabulary: %w", err)
			}
			defer f.Close()

			a, err := openApp(ctx, global)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ConceptService.ImportVocabulary(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d concepts from %s\n", n, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the vocabulary JSON file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newConceptsRefreshCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Recompute every concept embedding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, global)
			if err != nil {
				return err
			}
			defer a.Close()

			return recordRun(ctx, a, domain.RunKindConceptsRefresh, func(ctx context.Context, run *domain.BatchRun) error {
				stats, err := a.ConceptService.RefreshConceptEmbeddings(ctx)
				if stats != nil {
					run.TotalItems = stats.Total
					run.ProcessedItems = stats.Updated
					run.FailedItems = stats.Failed
				}
				return err
			})
		},
	}
}
