package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// FileStore persists the ledger as a JSON array, atomically replaced on every save.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name identifies the store in logs and metrics.
func (s *FileStore) Name() string {
	return "local"
}

// Path returns the ledger file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save overwrites the file with records.
func (s *FileStore) Save(_ context.Context, records []*models.PredictionRecord) error {
	if records == nil {
		records = []*models.PredictionRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	return nil
}

// Load reads the file. A missing file is an empty ledger.
func (s *FileStore) Load(_ context.Context) ([]*models.PredictionRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var records []*models.PredictionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}
	return records, nil
}

// Clear removes the file.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove ledger file: %w", err)
	}
	return nil
}
