package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/api"
	"github.com/JakeFAU/pagewatch/internal/schedule"
)

const shutdownTimeout = 10 * time.Second

// newScheduleCmd creates the 'schedule' subcommand, which keeps the process
// alive and runs checks on the configured cron spec.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Runs checks on a cron schedule and serves health and metrics",
		Args:  cobra.NoArgs,
		RunE:  runScheduleCommand,
	}
}

func runScheduleCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()
	runner := appInstance.Runner()

	scheduler, err := schedule.New(cfg.Schedule.Spec, runner, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Schedule.ListenAddr,
		Handler:           api.NewServer(runner, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	if cfg.Schedule.RunOnStart {
		go func() {
			report, err := runner.Trigger(ctx)
			if err != nil {
				logger.Warn("startup check failed", zap.String("run_id", report.RunID), zap.Error(err))
				return
			}
			logger.Info("startup check finished",
				zap.String("run_id", report.RunID),
				zap.String("classification", string(report.Classification)),
			)
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", zap.Error(err))
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		logger.Info("shutdown complete")
		return nil
	}
}
