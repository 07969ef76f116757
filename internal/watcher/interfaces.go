package watcher

import (
	"context"
	"time"
)

// Fetcher retrieves the watched page.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Normalizer removes volatile markup before hashing.
type Normalizer interface {
	Normalize(raw string) string
}

// Hasher computes the content digest.
type Hasher interface {
	Digest(data []byte) string
}

// StateStore reads and writes the last-known digest and debug metadata.
// A missing key is reported as found == false with a nil error.
type StateStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
}

// Notifier delivers a message to a push sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
