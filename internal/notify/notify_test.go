package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/pagewatch/internal/config"
	"github.com/JakeFAU/pagewatch/internal/notify/memory"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

func TestOpenNtfy(t *testing.T) {
	t.Parallel()

	hits := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := Open(context.Background(), config.NotifyConfig{
		Sink: config.SinkNtfy,
		Ntfy: config.NtfyConfig{Server: srv.URL, Topic: "jlpt"},
	}, time.Second, nil)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Notify(context.Background(), watcher.Notification{Title: "JLPT Update", Message: "m"}))
	require.Equal(t, "/jlpt", <-hits)
}

func TestOpenLogSink(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink, err := Open(context.Background(), config.NotifyConfig{Sink: config.SinkLog}, time.Second, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, sink.Notify(context.Background(), watcher.Notification{Title: "JLPT Update", Message: "hello", RunID: "r1"}))
	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	require.Equal(t, "hello", entries[0].ContextMap()["message"])
	require.Equal(t, "r1", entries[0].ContextMap()["run_id"])
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.NotifyConfig{Sink: "smtp"}, time.Second, nil)
	require.ErrorContains(t, err, "unknown notify sink")

	_, err = Open(context.Background(), config.NotifyConfig{Sink: config.SinkNtfy}, time.Second, nil)
	require.ErrorContains(t, err, "open ntfy notifier")

	_, err = Open(context.Background(), config.NotifyConfig{Sink: config.SinkPubSub}, time.Second, nil)
	require.ErrorContains(t, err, "open pubsub notifier")
}

func TestWithMetricsWrapsErrors(t *testing.T) {
	t.Parallel()

	rec := memory.New()
	sink := WithMetrics(rec, "memory")
	require.NoError(t, sink.Notify(context.Background(), watcher.Notification{Message: "ok"}))

	boom := errors.New("503 from upstream")
	rec.FailWith(boom)
	err := sink.Notify(context.Background(), watcher.Notification{Message: "fail"})

	var notifyErr *watcher.NotifyError
	require.ErrorAs(t, err, &notifyErr)
	require.Equal(t, "memory", notifyErr.Sink)
	require.ErrorIs(t, err, boom)
	require.Len(t, rec.Messages(), 2)
	require.NoError(t, sink.Close())
}
