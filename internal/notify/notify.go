// Package notify selects the notification sink and decorates it with logging
// and metrics.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/config"
	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/notify/ntfy"
	"github.com/JakeFAU/pagewatch/internal/notify/pubsub"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// Sink is a notifier that may hold resources until closed.
type Sink interface {
	watcher.Notifier
	Close() error
}

// Open builds the sink named by cfg.Sink and wraps it with metrics.
func Open(ctx context.Context, cfg config.NotifyConfig, timeout time.Duration, logger *zap.Logger) (Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		sink Sink
		err  error
	)
	switch cfg.Sink {
	case config.SinkNtfy:
		sink, err = ntfy.New(ntfy.Config{
			Server:   cfg.Ntfy.Server,
			Topic:    cfg.Ntfy.Topic,
			Priority: cfg.Ntfy.Priority,
			Tags:     cfg.Ntfy.Tags,
			Timeout:  timeout,
		}, nil)
	case config.SinkPubSub:
		sink, err = pubsub.Open(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
	case config.SinkLog:
		sink = NewLog(logger)
	default:
		return nil, fmt.Errorf("unknown notify sink %q", cfg.Sink)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s notifier: %w", cfg.Sink, err)
	}
	logger.Info("notifier ready", zap.String("sink", cfg.Sink))
	return WithMetrics(sink, cfg.Sink), nil
}

// Log writes notifications to a zap logger instead of delivering them.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a Log sink.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("notify")}
}

// Notify implements watcher.Notifier.
func (l *Log) Notify(_ context.Context, n watcher.Notification) error {
	l.logger.Info("notification",
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.String("run_id", n.RunID),
		zap.String("page_url", n.PageURL),
	)
	return nil
}

// Close is a no-op.
func (l *Log) Close() error {
	return nil
}

type instrumented struct {
	Sink
	name string
}

// WithMetrics counts every Notify call by sink name and result. Errors are
// wrapped as *watcher.NotifyError naming the sink.
func WithMetrics(sink Sink, name string) Sink {
	return &instrumented{Sink: sink, name: name}
}

func (i *instrumented) Notify(ctx context.Context, n watcher.Notification) error {
	err := i.Sink.Notify(ctx, n)
	metrics.ObserveNotification(i.name, err)
	if err != nil {
		return &watcher.NotifyError{Sink: i.name, Err: err}
	}
	return nil
}
