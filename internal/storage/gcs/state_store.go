// Package gcs provides a state store backed by Google Cloud Storage. Each key
// is a small text object at <prefix>/<namespace>/<key>.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket    string
	Prefix    string
	Namespace string
	// Endpoint overrides the API endpoint, for emulators.
	Endpoint string
}

// StateStore keeps state values as objects in a bucket.
type StateStore struct {
	client    *storage.Client
	bucket    string
	prefix    string
	namespace string
	owned     bool
}

// Open creates a storage client (Application Default Credentials unless an
// emulator endpoint is set) and returns a store that owns it.
func Open(ctx context.Context, cfg Config) (*StateStore, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	store, err := New(client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client *storage.Client, cfg Config) (*StateStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Namespace) == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	return &StateStore{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		namespace: cfg.Namespace,
	}, nil
}

// ObjectName returns the object path used for key.
func (s *StateStore) ObjectName(key string) string {
	return objectName(s.prefix, s.namespace, key)
}

func objectName(prefix, namespace, key string) string {
	if prefix == "" {
		return path.Join(namespace, key)
	}
	return path.Join(prefix, namespace, key)
}

// Get downloads the object for key. A missing object is reported as not found.
func (s *StateStore) Get(ctx context.Context, key string) (string, bool, error) {
	name := s.ObjectName(key)
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("open GCS object %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", false, fmt.Errorf("read GCS object %s: %w", name, err)
	}
	return string(data), true, nil
}

// Put uploads value as the object for key, replacing any previous version.
func (s *StateStore) Put(ctx context.Context, key, value string) error {
	name := s.ObjectName(key)
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = "text/plain; charset=utf-8"
	if _, err := io.WriteString(wc, value); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			return fmt.Errorf("write GCS object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write GCS object %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", name, err)
	}
	return nil
}

// Close releases the client when the store created it.
func (s *StateStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
