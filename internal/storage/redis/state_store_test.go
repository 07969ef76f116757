package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store, err := NewWithClient(client, "PAGE_STATE")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestGetAbsentKey(t *testing.T) {
	store, _ := newTestStore(t)

	val, found, err := store.Get(context.Background(), "page_content_hash")
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, val)
}

func TestPutThenGetUsesNamespacedKey(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "page_content_hash", "abc"))

	raw, err := mr.Get("PAGE_STATE:page_content_hash")
	require.NoError(t, err)
	require.Equal(t, "abc", raw)

	got, found, err := store.Get(ctx, "page_content_hash")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "abc", got)

	require.NoError(t, store.Put(ctx, "page_content_hash", "def"))
	got, _, err = store.Get(ctx, "page_content_hash")
	require.NoError(t, err)
	require.Equal(t, "def", got)
	require.False(t, mr.Exists("page_content_hash"))
}

func TestServerErrorsPropagate(t *testing.T) {
	store, mr := newTestStore(t)
	mr.SetError("ERR backend unavailable")

	_, _, err := store.Get(context.Background(), "k")
	require.ErrorContains(t, err, "redis get PAGE_STATE:k")

	err = store.Put(context.Background(), "k", "v")
	require.ErrorContains(t, err, "redis set PAGE_STATE:k")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Namespace: "NS"})
	require.ErrorIs(t, err, ErrEmptyAddress)

	_, err = NewWithClient(nil, "NS")
	require.Error(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	_, err = NewWithClient(client, "")
	require.Error(t, err)
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := New(context.Background(), Config{Address: mr.Addr(), Namespace: "NS"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = New(context.Background(), Config{Address: addr, Namespace: "NS"})
	require.ErrorContains(t, err, "redis ping failed")
}
