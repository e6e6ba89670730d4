package ml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const bundleFileName = "bundle.json"

// LocalStore keeps versioned bundles on disk and one active copy.
type LocalStore struct {
	modelDir  string
	activeDir string
}

// NewLocalStore creates a store rooted at the given directories.
func NewLocalStore(modelDir, activeDir string) *LocalStore {
	return &LocalStore{modelDir: modelDir, activeDir: activeDir}
}

// Name identifies the store as a bundle source.
func (s *LocalStore) Name() string {
	return "local"
}

// ActivePath is where the promoted bundle lives.
func (s *LocalStore) ActivePath() string {
	return filepath.Join(s.activeDir, bundleFileName)
}

// VersionPath is where a versioned bundle lives.
func (s *LocalStore) VersionPath(version string) string {
	return filepath.Join(s.modelDir, version, bundleFileName)
}

// Save writes a versioned bundle and returns its path.
func (s *LocalStore) Save(b *ModelBundle) (string, error) {
	data, err := EncodeBundle(b)
	if err != nil {
		return "", err
	}
	path := s.VersionPath(b.Metadata.Version)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Promote copies a saved version over the active bundle.
func (s *LocalStore) Promote(version string) error {
	data, err := os.ReadFile(s.VersionPath(version))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: version %s", ErrBundleNotFound, version)
		}
		return fmt.Errorf("failed to read bundle %s: %w", version, err)
	}
	return writeAtomic(s.ActivePath(), data)
}

// Load returns the active bundle.
func (s *LocalStore) Load(_ context.Context) (*ModelBundle, error) {
	return readBundle(s.ActivePath())
}

// LoadVersion returns a specific saved bundle.
func (s *LocalStore) LoadVersion(version string) (*ModelBundle, error) {
	return readBundle(s.VersionPath(version))
}

func readBundle(path string) (*ModelBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, path)
		}
		return nil, fmt.Errorf("failed to read bundle %s: %w", path, err)
	}
	return DecodeBundle(data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
