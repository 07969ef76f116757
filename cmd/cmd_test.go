package cmd

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/app"
	"github.com/JakeFAU/pagewatch/internal/config"
	notifymemory "github.com/JakeFAU/pagewatch/internal/notify/memory"
	statememory "github.com/JakeFAU/pagewatch/internal/storage/memory"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

type pageFetcher struct {
	status int
	body   string
}

func (f pageFetcher) Fetch(_ context.Context, req watcher.FetchRequest) (watcher.FetchResponse, error) {
	return watcher.FetchResponse{URL: req.URL, StatusCode: f.status, Body: []byte(f.body)}, nil
}

type fixture struct {
	store    *statememory.StateStore
	notifier *notifymemory.Notifier
	fetcher  pageFetcher
	closes   int
}

// trackedApp counts Close calls on the wrapped App.
type trackedApp struct {
	App
	fx *fixture
}

func (a trackedApp) Close() error {
	a.fx.closes++
	return a.App.Close()
}

func setup(t *testing.T, fetcher pageFetcher) *fixture {
	t.Helper()
	t.Setenv("NTFY_TOPIC", "")
	t.Setenv("PAGEWATCH_NOTIFY_NTFY_TOPIC", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "notify:\n  sink: log\nstate:\n  provider: memory\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	fx := &fixture{
		store:    statememory.NewStateStore(),
		notifier: notifymemory.New(),
		fetcher:  fetcher,
	}
	prevApp, prevCfg := newApp, cfgFile
	t.Cleanup(func() { newApp, cfgFile = prevApp, prevCfg })
	newApp = func(_ context.Context, cfg config.Config, _ *zap.Logger) (App, error) {
		return trackedApp{App: app.NewWithDeps(cfg, zap.NewNop(), fx.store, fx.notifier, fx.fetcher), fx: fx}, nil
	}
	cfgFile = path
	return fx
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", cfgFile))
	err := executeRoot(context.Background(), root)
	return out.String(), err
}

func TestCheckCommandNotifiesAndPersists(t *testing.T) {
	fx := setup(t, pageFetcher{status: http.StatusOK, body: "<main>exam dates TBA</main>"})

	out, err := execute(t, "check")
	require.NoError(t, err)
	require.Contains(t, out, "content_changed")
	require.Len(t, fx.notifier.Messages(), 1)

	digest, found, err := fx.store.Get(context.Background(), watcher.DefaultStateKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, digest, 64)

	out, err = execute(t, "check")
	require.NoError(t, err)
	require.Contains(t, out, "unchanged")
	require.Len(t, fx.notifier.Messages(), 2)
	require.Equal(t, 2, fx.closes)
}

func TestCheckCommandFailsOnBadStatus(t *testing.T) {
	fx := setup(t, pageFetcher{status: http.StatusServiceUnavailable})

	out, err := execute(t, "check")
	require.ErrorContains(t, err, "check failed")
	require.Contains(t, out, "failed")
	require.Equal(t, 0, fx.store.Writes())
	require.Equal(t, 1, fx.closes, "services are closed even when the command fails")
}

func TestStateCommands(t *testing.T) {
	fx := setup(t, pageFetcher{status: http.StatusOK})

	_, err := execute(t, "state", "get", watcher.DefaultStateKey)
	require.ErrorContains(t, err, "not found")

	_, err = execute(t, "state", "put", watcher.DefaultStateKey, "abc123")
	require.NoError(t, err)
	require.Equal(t, map[string]string{watcher.DefaultStateKey: "abc123"}, fx.store.Snapshot())

	out, err := execute(t, "state", "get", watcher.DefaultStateKey)
	require.NoError(t, err)
	require.Equal(t, "abc123\n", out)
}

func TestVersionSkipsServices(t *testing.T) {
	prevApp := newApp
	t.Cleanup(func() { newApp = prevApp })
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		t.Fatal("version must not build services")
		return nil, nil
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, executeRoot(context.Background(), root))
	require.Equal(t, "pagewatch dev\n", out.String())
}

func TestInvalidConfigFails(t *testing.T) {
	setup(t, pageFetcher{status: http.StatusOK})
	require.NoError(t, os.WriteFile(cfgFile, []byte("state:\n  provider: etcd\nnotify:\n  sink: log\n"), 0o600))

	_, err := execute(t, "check")
	require.ErrorContains(t, err, "load config")
}
