package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/database"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

func minuteKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// PostgresFeatureRepository implements FeatureRepository for PostgreSQL
type PostgresFeatureRepository struct {
	db *database.DB
}

// NewPostgresFeatureRepository creates a new feature repository
func NewPostgresFeatureRepository(db *database.DB) FeatureRepository {
	return &PostgresFeatureRepository{db: db}
}

// SaveNew implements FeatureRepository
func (f *PostgresFeatureRepository) SaveNew(ctx context.Context, rows []models.FeatureRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			"INSERT INTO features (ts, price, features) VALUES ($1, $2, $3) ON CONFLICT (ts) DO NOTHING",
			minuteKey(r.Timestamp), r.Price, r.Values,
		)
	}

	results := f.db.SendBatch(ctx, batch)
	defer results.Close()

	added := 0
	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return added, fmt.Errorf("failed to insert feature row: %w", err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

// Recent implements FeatureRepository
func (f *PostgresFeatureRepository) Recent(ctx context.Context, limit int) ([]models.FeatureRow, error) {
	query := `
		SELECT ts, price, features FROM (
			SELECT ts, price, features FROM features ORDER BY ts DESC LIMIT $1
		) recent
		ORDER BY ts ASC
	`

	rows, err := f.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	var out []models.FeatureRow
	for rows.Next() {
		var r models.FeatureRow
		if err := rows.Scan(&r.Timestamp, &r.Price, &r.Values); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count implements FeatureRepository
func (f *PostgresFeatureRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := f.db.QueryRow(ctx, "SELECT COUNT(*) FROM features").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count features: %w", err)
	}
	return n, nil
}

// MemoryFeatureRepository keeps feature rows in process memory. It is used
// when no database is configured.
type MemoryFeatureRepository struct {
	mu      sync.RWMutex
	rows    map[time.Time]models.FeatureRow
	maxRows int
}

// NewMemoryFeatureRepository creates a store holding at most maxRows rows;
// the oldest are dropped first. maxRows <= 0 means unbounded.
func NewMemoryFeatureRepository(maxRows int) *MemoryFeatureRepository {
	return &MemoryFeatureRepository{rows: make(map[time.Time]models.FeatureRow), maxRows: maxRows}
}

// SaveNew implements FeatureRepository
func (m *MemoryFeatureRepository) SaveNew(_ context.Context, rows []models.FeatureRow) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, r := range rows {
		key := minuteKey(r.Timestamp)
		if _, exists := m.rows[key]; exists {
			continue
		}
		r.Timestamp = key
		m.rows[key] = r
		added++
	}

	if m.maxRows > 0 && len(m.rows) > m.maxRows {
		keys := m.sortedKeys()
		for _, k := range keys[:len(keys)-m.maxRows] {
			delete(m.rows, k)
		}
	}
	return added, nil
}

// Recent implements FeatureRepository
func (m *MemoryFeatureRepository) Recent(_ context.Context, limit int) ([]models.FeatureRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := m.sortedKeys()
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	out := make([]models.FeatureRow, len(keys))
	for i, k := range keys {
		out[i] = m.rows[k]
	}
	return out, nil
}

// Count implements FeatureRepository
func (m *MemoryFeatureRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows), nil
}

func (m *MemoryFeatureRepository) sortedKeys() []time.Time {
	keys := make([]time.Time, 0, len(m.rows))
	for k := range m.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}
