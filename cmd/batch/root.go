package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/timmy/shotrank/internal/app"
	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/logger"
)

const rootLongDesc string = `Offline jobs for the screenshot ranking engine.

Typical order after new screenshots arrive:
  shotrank-batch concepts import --file vocabulary.json
  shotrank-batch concepts refresh
  shotrank-batch embed --source manifest
  shotrank-batch tag
  shotrank-batch hubs --clear`

type globalFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "shotrank-batch",
		Short:         "Offline embedding, tagging and hub detection jobs",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")

	cmd.AddCommand(newEmbedCmd(flags))
	cmd.AddCommand(newConceptsCmd(flags))
	cmd.AddCommand(newTagCmd(flags))
	cmd.AddCommand(newHubsCmd(flags))

	return cmd
}

// openApp loads configuration and builds the application graph.
func openApp(ctx context.Context, flags *globalFlags) (*app.App, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// recordRun wraps fn in a BatchRun row so every offline job leaves an audit
// trail, including failed and interrupted ones.
func recordRun(ctx context.Context, a *app.App, kind domain.RunKind, fn func(ctx context.Context, run *domain.BatchRun) error) error {
	run := &domain.BatchRun{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := a.Runs.Create(ctx, run); err != nil {
		return err
	}

	ctx = logger.WithRun(ctx, run.ID, string(kind))
	logger.CtxInfo(ctx, "Batch run started: kind=%s", kind)

	runErr := fn(ctx, run)

	// The run row must be closed even when ctx was cancelled by a signal.
	if err := a.Runs.Finish(context.WithoutCancel(ctx), run, runErr); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to record batch run result")
	}

	logger.With(logger.Fields{
		logger.FieldStatus: run.Status,
		"total":            run.TotalItems,
		"processed":        run.ProcessedItems,
		"failed":           run.FailedItems,
	}).Since(run.StartedAt).Info(ctx, "Batch run finished: kind=%s", kind)
	return runErr
}
