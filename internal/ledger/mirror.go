package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// MirrorRepository is the remote table holding mirrored ledger records.
type MirrorRepository interface {
	UpsertBatch(ctx context.Context, records []*models.PredictionRecord) error
	Recent(ctx context.Context, limit int, since time.Time) ([]*models.PredictionRecord, error)
	DeleteAll(ctx context.Context) error
}

// RemoteMirror syncs ledger snapshots to a remote repository on a best-effort basis.
type RemoteMirror struct {
	repo       MirrorRepository
	limit      int
	window     time.Duration
	maxElapsed time.Duration
	now        func() time.Time
}

// NewRemoteMirror creates a mirror that rehydrates at most limit records
// created within window.
func NewRemoteMirror(repo MirrorRepository, limit int, window time.Duration) *RemoteMirror {
	return &RemoteMirror{
		repo:       repo,
		limit:      limit,
		window:     window,
		maxElapsed: 10 * time.Second,
		now:        time.Now,
	}
}

// Name identifies the store in logs and metrics.
func (m *RemoteMirror) Name() string {
	return "remote"
}

// Save upserts every record, retrying with exponential backoff.
func (m *RemoteMirror) Save(ctx context.Context, records []*models.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}
	operation := func() error {
		return m.repo.UpsertBatch(ctx, records)
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.InitialInterval = 200 * time.Millisecond
	backoffStrategy.MaxElapsedTime = m.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return fmt.Errorf("failed to mirror ledger: %w", err)
	}
	return nil
}

// Load returns the most recent mirrored records, oldest first.
func (m *RemoteMirror) Load(ctx context.Context) ([]*models.PredictionRecord, error) {
	records, err := m.repo.Recent(ctx, m.limit, m.now().Add(-m.window))
	if err != nil {
		return nil, fmt.Errorf("failed to load mirrored ledger: %w", err)
	}
	return records, nil
}

// Clear deletes every mirrored record.
func (m *RemoteMirror) Clear(ctx context.Context) error {
	if err := m.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear mirrored ledger: %w", err)
	}
	return nil
}
