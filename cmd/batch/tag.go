package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/shotrank/internal/domain"
)

type tagCommander struct {
	global  *globalFlags
	imageID string
}

func newTagCmd(global *globalFlags) *cobra.Command {
	cmder := &tagCommander{global: global}

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Assign concept tags to embedded screenshots",
		Long: `Tag every embedded screenshot against the current concept vocabulary,
or a single screenshot with --image. Existing tags are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.imageID, "image", "i", "", "Tag only this image id")

	return cmd
}

func (c *tagCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, c.global)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.imageID != "" {
		tags, err := a.Tagging.TagImage(ctx, c.imageID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d tags\n", c.imageID, len(tags))
		for _, tag := range tags {
			fmt.Fprintf(out, "  %-24s %.4f\n", tag.ConceptID, tag.Score)
		}
		return nil
	}

	return recordRun(ctx, a, domain.RunKindTag, func(ctx context.Context, run *domain.BatchRun) error {
		stats, err := a.Tagging.TagAll(ctx)
		if stats != nil {
			run.TotalItems = int(stats.TotalImages)
			run.ProcessedItems = int(stats.TaggedImages)
			run.FailedItems = int(stats.FailedItems)
		}
		return err
	})
}
