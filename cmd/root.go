// Package cmd defines and implements the CLI commands for the pagewatch executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/app"
	"github.com/JakeFAU/pagewatch/internal/config"
	"github.com/JakeFAU/pagewatch/internal/logging"
	"github.com/JakeFAU/pagewatch/internal/schedule"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const (
	appKey    appKeyType = "app"
	holderKey appKeyType = "app-holder"
)

// appHolder keeps the App built by PersistentPreRunE so executeRoot can close
// it after the command returns. Cobra skips PersistentPostRun when RunE
// fails.
type appHolder struct {
	app App
}

func (h *appHolder) close() {
	if h.app == nil {
		return
	}
	logger := h.app.Logger()
	if err := h.app.Close(); err != nil {
		logger.Warn("failed to close services", zap.Error(err))
	}
	_ = logger.Sync()
	h.app = nil
}

// App defines the application interface that commands will use.
// Tests replace it through newApp.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Store() watcher.StateStore
	Runner() *schedule.Runner
	Close() error
}

// newApp is the application factory. It's a variable so tests can swap in
// in-memory dependencies.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagewatch",
		Short: "Watches a web page and notifies when it changes.",
		Long: `pagewatch fetches one page, fingerprints its meaningful content and
compares it with the digest stored by the previous run. A keyword match or a
content change triggers a push notification.`,
		SilenceUsage: true,

		// Builds the application once config is known and before the
		// subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if holder, ok := cmd.Context().Value(holderKey).(*appHolder); ok {
				holder.app = appInstance
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newScheduleCmd())
	cmd.AddCommand(newStateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	if ctx == nil {
		return nil, errors.New("application services not initialized")
	}
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// executeRoot runs root and then closes the services it built, whether or not
// the command succeeded.
func executeRoot(ctx context.Context, root *cobra.Command) error {
	holder := &appHolder{}
	defer holder.close()
	return root.ExecuteContext(context.WithValue(ctx, holderKey, holder))
}

// Execute is the main entry point.
func Execute() {
	if err := executeRoot(context.Background(), newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, "pagewatch:", err)
		os.Exit(1)
	}
}
