package trends

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"contentengine/internal/engine"
)

// SQLiteStore keeps trend signals in a SQLite database so snapshots survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trend_signals (
			id TEXT PRIMARY KEY,
			keyword TEXT NOT NULL,
			score REAL NOT NULL,
			source TEXT,
			observed_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trend_signals_keyword ON trend_signals(keyword);`,
		`CREATE INDEX IF NOT EXISTS idx_trend_signals_observed ON trend_signals(observed_at);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the provider identifier.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Upsert stores a signal, replacing any row with the same id.
func (s *SQLiteStore) Upsert(ctx context.Context, sig Signal) (Signal, error) {
	sig.Keyword = NormalizeKeyword(sig.Keyword)
	if sig.Keyword == "" {
		return Signal{}, fmt.Errorf("trends: signal keyword is empty")
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.ObservedAt.IsZero() {
		sig.ObservedAt = time.Now().UTC()
	}
	if sig.Source == "" {
		sig.Source = s.Name()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trend_signals (id, keyword, score, source, observed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			keyword=excluded.keyword,
			score=excluded.score,
			source=excluded.source,
			observed_at=excluded.observed_at
	`, sig.ID, sig.Keyword, sig.Score, sig.Source, sig.ObservedAt.UnixNano())
	if err != nil {
		return Signal{}, fmt.Errorf("upsert signal %s: %w", sig.ID, err)
	}
	return sig, nil
}

// Record implements the ingest sink used by the HTTP layer.
func (s *SQLiteStore) Record(ctx context.Context, sig Signal) (Signal, error) {
	return s.Upsert(ctx, sig)
}

// Import stores a batch of signals in one transaction.
func (s *SQLiteStore) Import(ctx context.Context, signals []Signal) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trend_signals (id, keyword, score, source, observed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			keyword=excluded.keyword,
			score=excluded.score,
			source=excluded.source,
			observed_at=excluded.observed_at
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	count := 0
	for _, sig := range signals {
		kw := NormalizeKeyword(sig.Keyword)
		if kw == "" {
			continue
		}
		if sig.ID == "" {
			sig.ID = uuid.NewString()
		}
		if sig.ObservedAt.IsZero() {
			sig.ObservedAt = now
		}
		if sig.Source == "" {
			sig.Source = s.Name()
		}
		if _, err := stmt.ExecContext(ctx, sig.ID, kw, sig.Score, sig.Source, sig.ObservedAt.UnixNano()); err != nil {
			return 0, fmt.Errorf("import signal %s: %w", sig.ID, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Lookup returns the highest stored score for each requested keyword.
func (s *SQLiteStore) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	var args []any
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = NormalizeKeyword(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		args = append(args, kw)
	}
	if len(args) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := s.db.QueryContext(ctx, `
		SELECT keyword, MAX(score) FROM trend_signals
		WHERE keyword IN (`+placeholders+`)
		GROUP BY keyword
		ORDER BY keyword
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query trend signals: %w", err)
	}
	defer rows.Close()

	var out []engine.TrendSignal
	for rows.Next() {
		var sig engine.TrendSignal
		if err := rows.Scan(&sig.Keyword, &sig.TrendScore); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// Prune deletes signals observed before ts and returns how many rows went away.
func (s *SQLiteStore) Prune(ctx context.Context, ts time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trend_signals WHERE observed_at < ?`, ts.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune trend signals: %w", err)
	}
	return res.RowsAffected()
}
