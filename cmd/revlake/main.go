package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlake/revlake/internal/clock"
	"github.com/revlake/revlake/internal/config"
	"github.com/revlake/revlake/internal/customer"
	"github.com/revlake/revlake/internal/datedim"
	"github.com/revlake/revlake/internal/migration"
	"github.com/revlake/revlake/internal/pipeline"
	pipelinedomain "github.com/revlake/revlake/internal/pipeline/domain"
	"github.com/revlake/revlake/internal/plan"
	"github.com/revlake/revlake/internal/scheduler"
	"github.com/revlake/revlake/internal/staging"
	"github.com/revlake/revlake/internal/subscription"
	"github.com/revlake/revlake/internal/usage"
	"github.com/revlake/revlake/pkg/db"
	"github.com/revlake/revlake/pkg/log"
	"github.com/revlake/revlake/pkg/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "revlake",
		Short:   "Revlake warehouse CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newRunCmd(), newSchedulerCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the staging and warehouse schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute a single pipeline run and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelineOnce()
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the pipeline on a fixed interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the interval scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runScheduler()
			return nil
		},
	}
}

func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		log.Module,
		telemetry.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		staging.Module,
		datedim.Module,
		plan.Module,
		customer.Module,
		subscription.Module,
		usage.Module,
		pipeline.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		log.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runPipelineOnce() error {
	var runErr error
	app := fx.New(
		coreModules(),
		fx.Invoke(func(svc pipelinedomain.Service, logger *zap.Logger) {
			report, err := svc.Run(context.Background())
			if err != nil {
				runErr = err
				return
			}
			logger.Info("run complete",
				zap.String("run_id", report.RunID),
				zap.Duration("duration", report.Duration),
			)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	stopErr := app.Stop(context.Background())
	if runErr != nil {
		return runErr
	}
	return stopErr
}

func runScheduler() {
	app := fx.New(
		coreModules(),
		scheduler.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
