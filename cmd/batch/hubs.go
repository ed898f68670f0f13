package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/service"
)

type hubsCommander struct {
	global              *globalFlags
	clear               bool
	topN                int
	thresholdMultiplier float64
}

func newHubsCmd(global *globalFlags) *cobra.Command {
	cmder := &hubsCommander{global: global}

	cmd := &cobra.Command{
		Use:   "hubs",
		Short: "Detect hub screenshots with synthetic probe queries",
		Long: `Run every concept label and generic style phrase as a probe query,
count how often each screenshot lands in the top N, and store statistics
for the screenshots that appear far more often than chance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.clear, "clear", false, "Delete all stored hub statistics before saving")
	cmd.Flags().IntVar(&cmder.topN, "top-n", 0, "Top results counted per probe (0 = configured default)")
	cmd.Flags().Float64Var(&cmder.thresholdMultiplier, "threshold-multiplier", 0, "Hub threshold as a multiple of the expected score (0 = configured default)")

	return cmd
}

func (c *hubsCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, c.global)
	if err != nil {
		return err
	}
	defer a.Close()

	return recordRun(ctx, a, domain.RunKindHubs, func(ctx context.Context, run *domain.BatchRun) error {
		report, err := a.Hubs.Run(ctx, service.RunOptions{
			RunID:               run.ID,
			Clear:               c.clear,
			TopN:                c.topN,
			ThresholdMultiplier: c.thresholdMultiplier,
		})
		if err != nil {
			return err
		}

		run.TotalItems = report.NumImages + report.Skipped
		run.ProcessedItems = report.NumImages
		run.FailedItems = report.Skipped

		fmt.Fprintf(cmd.OutOrStdout(), "%d probes over %d images: %d hubs (expected %.4f, threshold %.4f)\n",
			report.NumQueries, report.NumImages, len(report.Hubs), report.ExpectedHubScore, report.Threshold)
		return nil
	})
}
