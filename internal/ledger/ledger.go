// Package ledger holds the bounded prediction ledger and its durable mirrors.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// DefaultCapacity is the number of records kept in memory.
const DefaultCapacity = 50

// Store is a durable copy of the ledger.
type Store interface {
	Name() string
	Save(ctx context.Context, records []*models.PredictionRecord) error
	Load(ctx context.Context) ([]*models.PredictionRecord, error)
	Clear(ctx context.Context) error
}

// PredictionLedger is the bounded in-memory ledger. It is the source of truth
// for the running process; stores only mirror it.
type PredictionLedger struct {
	mu  sync.Mutex
	buf *Bounded[*models.PredictionRecord]

	// persistMu is taken before mu and held from snapshot to write, so stores
	// always receive snapshots in the order they were taken.
	persistMu sync.Mutex
	stores    []Store
	timeout   time.Duration
	logger    *logrus.Entry
}

// Option configures a PredictionLedger.
type Option func(*PredictionLedger)

// WithStores sets the persistence targets, written in order on every save.
func WithStores(stores ...Store) Option {
	return func(l *PredictionLedger) {
		l.stores = stores
	}
}

// WithTimeout bounds each store call.
func WithTimeout(d time.Duration) Option {
	return func(l *PredictionLedger) {
		l.timeout = d
	}
}

// New creates an empty ledger.
func New(capacity int, log *logrus.Logger, opts ...Option) *PredictionLedger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &PredictionLedger{
		buf:     NewBounded[*models.PredictionRecord](capacity),
		timeout: 10 * time.Second,
		logger:  log.WithField("component", "ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds a record, evicting the oldest when full, then persists the snapshot.
func (l *PredictionLedger) Append(ctx context.Context, rec *models.PredictionRecord) {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	if evicted, ok := l.buf.Push(rec.Clone()); ok && evicted.IsPending() {
		l.logger.WithField("prediction_id", evicted.ID).Debug("Evicted pending prediction")
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.persist(ctx, snapshot)
}

// Snapshot returns deep copies of every record, oldest first.
func (l *PredictionLedger) Snapshot() []*models.PredictionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Recent returns the newest limit records, oldest first.
func (l *PredictionLedger) Recent(limit int) []*models.PredictionRecord {
	snapshot := l.Snapshot()
	if limit > 0 && len(snapshot) > limit {
		snapshot = snapshot[len(snapshot)-limit:]
	}
	return snapshot
}

func (l *PredictionLedger) snapshotLocked() []*models.PredictionRecord {
	out := make([]*models.PredictionRecord, 0, l.buf.Len())
	l.buf.Each(func(r *models.PredictionRecord) {
		out = append(out, r.Clone())
	})
	return out
}

// MutatePending calls mutate on every pending record for which match returns
// true, in ledger order. mutate reports whether it changed the record. The
// returned count is the number of changed records; nothing is persisted.
func (l *PredictionLedger) MutatePending(match func(*models.PredictionRecord) bool, mutate func(*models.PredictionRecord) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := 0
	l.buf.Each(func(r *models.PredictionRecord) {
		if !r.IsPending() || !match(r) {
			return
		}
		if mutate(r) {
			changed++
		}
	})
	return changed
}

// Persist writes the current snapshot to every store.
func (l *PredictionLedger) Persist(ctx context.Context) {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()
	l.persist(ctx, l.Snapshot())
}

// persist never fails the caller; errors are logged and counted. The caller
// holds persistMu.
func (l *PredictionLedger) persist(ctx context.Context, snapshot []*models.PredictionRecord) {
	pending := 0
	for _, r := range snapshot {
		if r.IsPending() {
			pending++
		}
	}
	metrics.UpdateLedgerSize(len(snapshot), pending)

	for _, store := range l.stores {
		storeCtx, cancel := context.WithTimeout(ctx, l.timeout)
		err := store.Save(storeCtx, snapshot)
		cancel()
		if err != nil {
			metrics.RecordPersistenceFailure(store.Name())
			l.logger.WithError(err).WithField("store", store.Name()).Warn("Failed to persist ledger")
		}
	}
}

// Len returns the number of records held.
func (l *PredictionLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Len()
}

// PendingCount returns the number of records awaiting validation.
func (l *PredictionLedger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	l.buf.Each(func(r *models.PredictionRecord) {
		if r.IsPending() {
			n++
		}
	})
	return n
}

// Capacity returns the maximum number of records held.
func (l *PredictionLedger) Capacity() int {
	return l.buf.Cap()
}

// Clear empties the ledger and every store. Store failures are returned
// joined, but the in-memory ledger is always emptied.
func (l *PredictionLedger) Clear(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	l.buf.Reset()
	l.mu.Unlock()
	metrics.UpdateLedgerSize(0, 0)

	var firstErr error
	for _, store := range l.stores {
		storeCtx, cancel := context.WithTimeout(ctx, l.timeout)
		err := store.Clear(storeCtx)
		cancel()
		if err != nil {
			l.logger.WithError(err).WithField("store", store.Name()).Warn("Failed to clear ledger store")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", store.Name(), err)
			}
		}
	}
	return firstErr
}

// Rehydrate loads the ledger from the first source that returns records.
// It never fails: with no usable source the ledger starts empty.
func (l *PredictionLedger) Rehydrate(ctx context.Context, sources ...Store) (string, int) {
	for _, source := range sources {
		sourceCtx, cancel := context.WithTimeout(ctx, l.timeout)
		records, err := source.Load(sourceCtx)
		cancel()
		if err != nil {
			l.logger.WithError(err).WithField("source", source.Name()).Warn("Ledger source unavailable")
			continue
		}
		if len(records) == 0 {
			continue
		}

		l.mu.Lock()
		l.buf.Replace(records)
		n := l.buf.Len()
		l.mu.Unlock()

		l.logger.WithFields(logrus.Fields{
			"source":  source.Name(),
			"records": n,
		}).Info("Ledger rehydrated")
		return source.Name(), n
	}

	l.logger.Info("No ledger history found, starting empty")
	return "", 0
}
