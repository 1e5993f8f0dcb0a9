// cmd/datamasker/run.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/audit"
	"github.com/David-Botos/data-masker/pkg/config"
	"github.com/David-Botos/data-masker/pkg/connector"
	"github.com/David-Botos/data-masker/pkg/datasource"
	"github.com/David-Botos/data-masker/pkg/masker"
	"github.com/David-Botos/data-masker/pkg/model"
	"github.com/David-Botos/data-masker/pkg/provider"
	"github.com/David-Botos/data-masker/pkg/runner"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		jsonReport bool
		noProgress bool
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mask every configured table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var progress runner.ProgressFactory
			if !noProgress {
				progress = progressBars(cmd.ErrOrStderr())
			}
			opts := runner.Options{
				UpdateMode:      cfg.UpdateMode,
				ContinueOnError: cfg.ContinueOnError,
				DryRun:          cfg.DataSource.DryRun,
				Verify:          verify,
				Progress:        progress,
			}
			return runMask(ctx, cfg, opts, logger, cmd.OutOrStdout(), jsonReport)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Execute every update inside a transaction that is rolled back")
	cmd.Flags().Int("batch-size", 0, "Rows per update transaction; 0 updates each table in one batch")
	cmd.Flags().Bool("continue-on-error", false, "Keep masking the remaining tables after one fails")
	cmd.Flags().String("update-mode", runner.UpdateModeBatch, "Update mode: batch or row")
	cmd.Flags().String("log-format", "console", "Log format: console or json")
	cmd.Flags().BoolVar(&jsonReport, "json", false, "Print the run metrics as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	cmd.Flags().BoolVar(&verify, "verify", false, "Recount each table after masking and warn on changes")
	return cmd
}

// runMask wires the data source, providers and masker together and runs every table
func runMask(ctx context.Context, cfg *config.Config, opts runner.Options, logger *zap.Logger, out io.Writer, jsonReport bool) error {
	ds, err := datasource.Provide(ctx, cfg.DataSource, cfg.DataGeneration, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Warn("Failed to close data source", zap.Error(err))
		}
	}()

	providers, closeProviders, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeProviders()

	recorder := audit.NewRecorder(logger)
	r := runner.New(ds, masker.New(providers, logger, masker.WithRecorder(recorder)), opts, logger)

	summary, runErr := r.Run(ctx, cfg.Tables)
	recorder.Log()

	if jsonReport {
		raw, err := r.Metrics().ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(raw))
	} else {
		fmt.Fprint(out, r.Metrics().Report())
		fmt.Fprint(out, recorder.Report())
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d tables failed", summary.FailedTables, len(summary.Tables))
	}
	return nil
}

// buildProviders returns the providers in resolution order. The query-derived
// provider gets its own connection so lookups never share the update transaction.
func buildProviders(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]provider.DataProvider, func(), error) {
	fake, err := provider.NewFakeProvider(cfg.DataGeneration)
	if err != nil {
		return nil, nil, err
	}
	providers := []provider.DataProvider{fake}
	closeFn := func() {}

	if !cfg.DataSource.Type.IsRelational() || !usesLookups(cfg.Tables) {
		return providers, closeFn, nil
	}

	db, err := connector.Open(ctx, cfg.DataSource.Type, cfg.DataSource.Connection, logger.Named("lookup"))
	if err != nil {
		return nil, nil, err
	}
	providers = append(providers, provider.NewSqlProvider(db).WithQueryTimeout(cfg.DataSource.Connection.QueryTimeout))

	closeFn = func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close lookup connection", zap.Error(err))
		}
	}
	return providers, closeFn, nil
}

func usesLookups(tables []model.TableConfig) bool {
	for _, table := range tables {
		for _, col := range table.Columns {
			if col.NeedsProvider() && col.Type == model.DataTypeSql {
				return true
			}
		}
	}
	return false
}

// progressBars draws one bar per table on w
func progressBars(w io.Writer) runner.ProgressFactory {
	return func(table model.TableConfig, total int) datasource.ProgressFunc {
		limit := int64(total)
		if limit <= 0 {
			limit = -1
		}
		bar := progressbar.NewOptions64(limit,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(table.FullName()),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
		)
		return func(processed int) {
			_ = bar.Set(processed)
			if total > 0 && processed >= total {
				_ = bar.Finish()
			}
		}
	}
}
