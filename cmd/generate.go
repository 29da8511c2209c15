package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/localpages-cli/internal/batch"
	"github.com/sells-group/localpages-cli/internal/config"
	"github.com/sells-group/localpages-cli/internal/monitoring"
	"github.com/sells-group/localpages-cli/internal/persist"
	"github.com/sells-group/localpages-cli/internal/pipeline"
	"github.com/sells-group/localpages-cli/internal/store"
)

var generateFlags struct {
	service  string
	locality string
	force    bool
	dryRun   bool
	limit    int
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate landing page content for service/locality pairs",
	Long:  "Runs the generation pipeline over every active service and locality matching the filters. Items that already have content are skipped unless --force is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("generate"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		env, err := newGenerateEnv(cfg, st, generateFlags.dryRun, logger)
		if err != nil {
			return err
		}

		sum, runErr := env.orchestrator.Run(ctx, batch.Selection{
			ServiceFilter:  generateFlags.service,
			LocalityFilter: generateFlags.locality,
			Force:          generateFlags.force,
			Limit:          generateFlags.limit,
		})
		if sum != nil {
			env.report(context.WithoutCancel(ctx), sum)
			out, err := json.MarshalIndent(sum, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal summary")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		}
		return runErr
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.service, "service", "all", "service key, or all")
	f.StringVar(&generateFlags.locality, "locality", "all", "locality slug, or all")
	f.BoolVar(&generateFlags.force, "force", false, "regenerate items that already have content")
	f.BoolVar(&generateFlags.dryRun, "dry-run", false, "log assembled rows instead of writing them")
	f.IntVar(&generateFlags.limit, "limit", 0, "max number of work items (0 = no limit)")
	rootCmd.AddCommand(generateCmd)
}

// generateEnv holds the components built for one generate invocation.
type generateEnv struct {
	orchestrator *batch.Orchestrator
	metrics      *monitoring.Metrics
	alerter      *monitoring.Alerter
	cfg          *config.Config
	log          *zap.Logger
}

func newGenerateEnv(c *config.Config, st store.Store, dryRun bool, log *zap.Logger) (*generateEnv, error) {
	collector, err := initCollector(c, log)
	if err != nil {
		return nil, err
	}
	executor, err := initExecutor(c, log)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	runner := pipeline.NewRunner(collector, executor, log)
	writer := persist.New(st, dryRun, log)
	orch := batch.New(st, runner, writer, initCosts(c), metrics, log)

	return &generateEnv{
		orchestrator: orch,
		metrics:      metrics,
		alerter:      monitoring.NewAlerter(c.Alerts, log),
		cfg:          c,
		log:          log,
	}, nil
}

// report pushes metrics and sends alerts. Failures here are logged, never
// returned: the batch itself already finished.
func (e *generateEnv) report(ctx context.Context, sum *batch.Summary) {
	if err := e.metrics.Push(ctx, e.cfg.Metrics.PushgatewayURL, e.cfg.Metrics.Job); err != nil {
		e.log.Warn("metrics push failed", zap.Error(err))
	}
	alerts := e.alerter.Evaluate(sum.Snapshot())
	if len(alerts) > 0 {
		e.alerter.SendAlerts(ctx, alerts)
	}
}
