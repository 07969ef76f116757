// Package local implements a filesystem-backed state store: one file per key
// under <base_dir>/<namespace>/.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem state store.
type Config struct {
	// BaseDir is the root directory where state files will be stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// Namespace groups keys of one watcher.
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// StateStore reads and writes state files on the local filesystem.
type StateStore struct {
	dir string
}

// New creates a new local filesystem-backed state store.
func New(cfg Config) (*StateStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := validateKey(cfg.Namespace); err != nil {
		return nil, fmt.Errorf("namespace: %w", err)
	}
	dir := filepath.Join(cfg.BaseDir, cfg.Namespace)

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat state directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("state directory path is not a directory")
	}

	return &StateStore{dir: dir}, nil
}

// Dir returns the namespace directory.
func (s *StateStore) Dir() string {
	return s.dir
}

// Get reads the value stored for key.
func (s *StateStore) Get(_ context.Context, key string) (string, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	// #nosec G304 -- path is validated to stay within the state directory.
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state file: %w", err)
	}
	return string(data), true, nil
}

// Put writes value for key, replacing the file atomically.
func (s *StateStore) Put(_ context.Context, key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *StateStore) Close() error {
	return nil
}

func (s *StateStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	full := filepath.Join(s.dir, key)
	// Clean the path and verify it's within dir to prevent path traversal.
	if !strings.HasPrefix(filepath.Clean(full), filepath.Clean(s.dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return full, nil
}

func validateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("key is required")
	case key == "." || key == "..":
		return fmt.Errorf("invalid key %q", key)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("key %q must not contain path separators", key)
	}
	return nil
}
