package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newFakeClient(t *testing.T, rt roundTripperFunc) *storage.Client {
	t.Helper()
	client, err := storage.NewClient(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{Transport: rt}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, namespace, key, want string
	}{
		{"pagewatch", "PAGE_STATE", "page_content_hash", "pagewatch/PAGE_STATE/page_content_hash"},
		{"", "PAGE_STATE", "k", "PAGE_STATE/k"},
		{"a/b", "NS", "k", "a/b/NS/k"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, objectName(tt.prefix, tt.namespace, tt.key))
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b", Namespace: "NS"})
	require.Error(t, err)

	client := newFakeClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})
	_, err = New(client, Config{Namespace: "NS"})
	require.ErrorContains(t, err, "bucket")

	_, err = New(client, Config{Bucket: "b"})
	require.ErrorContains(t, err, "namespace")

	store, err := New(client, Config{Bucket: "b", Prefix: "/pagewatch/", Namespace: "NS"})
	require.NoError(t, err)
	assert.Equal(t, "pagewatch/NS/k", store.ObjectName("k"))
	require.NoError(t, store.Close())
}

func TestGetMissingObject(t *testing.T) {
	t.Parallel()

	client := newFakeClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Contains(t, r.URL.Path, "state-bucket")
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})
	store, err := New(client, Config{Bucket: "state-bucket", Prefix: "pagewatch", Namespace: "PAGE_STATE"})
	require.NoError(t, err)

	val, found, err := store.Get(context.Background(), "page_content_hash")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)
}
