package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

const pushTimeout = 10 * time.Second

// newCheckCmd creates the 'check' subcommand, the entry point an external
// timer invokes once per period.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Runs one check of the watched page",
		Long: `Fetches the watched page once, classifies it against the stored digest
and sends the resulting notification. Exits non-zero when the run fails.`,
		Args: cobra.NoArgs,
		RunE: runCheckCommand,
	}
}

func runCheckCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := appInstance.Runner().Trigger(ctx)
	printReport(cmd.OutOrStdout(), report)

	mc := appInstance.Config().Metrics
	if mc.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := metrics.Push(pushCtx, mc.PushgatewayURL, mc.Job); err != nil {
			logger.Warn("metrics push failed", zap.Error(err))
		}
	}

	if runErr != nil {
		return fmt.Errorf("check failed: %w", runErr)
	}
	return nil
}

func printReport(w io.Writer, r watcher.Report) {
	if r.State == watcher.StateFailed {
		fmt.Fprintf(w, "run %s failed: %s\n", r.RunID, r.Error)
		return
	}
	fmt.Fprintf(w, "run %s %s: %s (changed=%t persisted=%t)\n",
		r.RunID, r.State, r.Classification, r.Changed, r.Persisted)
}
