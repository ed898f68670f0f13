package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/shotrank/internal/app"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/service"
	"github.com/timmy/shotrank/internal/source"
	"github.com/timmy/shotrank/internal/source/bucket"
	"github.com/timmy/shotrank/internal/source/manifest"
	"github.com/timmy/shotrank/internal/storage"
)

type embedCommander struct {
	global *globalFlags
	source string
	limit  int
	force  bool
}

func newEmbedCmd(global *globalFlags) *cobra.Command {
	cmder := &embedCommander{global: global}

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed screenshots from a source",
		Long: `Read screenshots from a source, embed each one and store the vectors.

Screenshots whose content hash already has an embedding are not sent to the
model again. Unchanged screenshots are skipped unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.source, "source", "s", manifest.SourceType, "Source to read from: manifest or bucket")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Maximum number of screenshots to process (0 = all)")
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Re-embed screenshots whose content has not changed")

	return cmd
}

func (c *embedCommander) run(ctx context.Context) error {
	a, err := openApp(ctx, c.global)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.ObjectStorage(ctx)
	if err != nil {
		return err
	}

	src, err := c.resolveSource(a, store)
	if err != nil {
		return err
	}

	return recordRun(ctx, a, domain.RunKindEmbed, func(ctx context.Context, run *domain.BatchRun) error {
		stats, err := a.EmbedService(store).EmbedFromSource(ctx, src, c.limit, &service.EmbedOptions{Force: c.force})
		if stats != nil {
			run.TotalItems = int(stats.TotalItems)
			run.ProcessedItems = int(stats.ProcessedItems)
			run.FailedItems = int(stats.FailedItems)
		}
		return err
	})
}

func (c *embedCommander) resolveSource(a *app.App, store storage.ObjectStorage) (source.Source, error) {
	switch c.source {
	case manifest.SourceType:
		m := a.Config.Sources.Manifest
		return manifest.NewAdapter(m.Path, m.ImagesDir), nil
	case bucket.SourceType:
		if store == nil {
			return nil, fmt.Errorf("source %q requires storage credentials", c.source)
		}
		return bucket.NewAdapter(store, a.Config.Sources.Bucket.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", c.source)
	}
}
