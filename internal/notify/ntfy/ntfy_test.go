package ntfy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pagewatch/internal/watcher"
)

type captured struct {
	mu      sync.Mutex
	method  string
	path    string
	body    string
	headers http.Header
}

func newServer(t *testing.T, status int, c *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.method, c.path, c.body, c.headers = r.Method, r.URL.Path, string(data), r.Header.Clone()
		c.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNotifyPostsMessage(t *testing.T) {
	t.Parallel()

	var c captured
	srv := newServer(t, http.StatusOK, &c)

	n, err := New(Config{Server: srv.URL, Topic: "jlpt-alerts", Priority: "high", Tags: []string{"warning", "jp"}}, nil)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/jlpt-alerts", n.Endpoint())

	err = n.Notify(context.Background(), watcher.Notification{
		Title:   "JLPT Update",
		Message: "UCD JLPT page has been updated. Check https://www.ucd.ie/japan/exams/",
	})
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, http.MethodPost, c.method)
	require.Equal(t, "/jlpt-alerts", c.path)
	require.Equal(t, "UCD JLPT page has been updated. Check https://www.ucd.ie/japan/exams/", c.body)
	require.Equal(t, "JLPT Update", c.headers.Get("Title"))
	require.Equal(t, "high", c.headers.Get("Priority"))
	require.Equal(t, "warning,jp", c.headers.Get("Tags"))
}

func TestNotifyOmitsOptionalHeaders(t *testing.T) {
	t.Parallel()

	var c captured
	srv := newServer(t, http.StatusOK, &c)

	n, err := New(Config{Server: srv.URL, Topic: "t"}, srv.Client())
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), watcher.Notification{Title: "JLPT Update", Message: "m"}))

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Empty(t, c.headers.Get("Priority"))
	require.Empty(t, c.headers.Get("Tags"))
}

func TestNotifyNon2xxIsError(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusMovedPermanently} {
		var c captured
		srv := newServer(t, status, &c)
		n, err := New(Config{Server: srv.URL, Topic: "t"}, nil)
		require.NoError(t, err)
		err = n.Notify(context.Background(), watcher.Notification{Message: "m"})
		require.Error(t, err, "status %d", status)
		require.Contains(t, err.Error(), "ntfy returned")
	}
}

func TestNotifyTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	n, err := New(Config{Server: url, Topic: "t"}, nil)
	require.NoError(t, err)
	err = n.Notify(context.Background(), watcher.Notification{Message: "m"})
	require.ErrorContains(t, err, "post to ntfy")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Server: DefaultServer}, nil)
	require.Error(t, err)

	_, err = New(Config{Server: "not a url", Topic: "t"}, nil)
	require.Error(t, err)

	n, err := New(Config{Topic: "my-topic"}, nil)
	require.NoError(t, err)
	require.Equal(t, "https://ntfy.sh/my-topic", n.Endpoint())
}
