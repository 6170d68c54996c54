package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

const memoryPath = ":memory:"

type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != memoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open failed for %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout failed for %s: %w", path, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			downloadable INTEGER NOT NULL DEFAULT 1,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func isRetryableSQLiteError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database is busy") ||
		strings.Contains(msg, "sqlite_busy")
}

func withSQLiteRetry(op func() error) error {
	var err error
	backoff := 50 * time.Millisecond
	for i := 0; i < 4; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isRetryableSQLiteError(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, batchID string, items []models.ItemResult) (*models.BatchRecord, error) {
	if items == nil {
		items = []models.ItemResult{}
	}
	now := time.Now().UTC()
	rec := &models.BatchRecord{
		ID:           batchID,
		Downloadable: true,
		Data:         items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	data, err := json.Marshal(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = withSQLiteRetry(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO batches (id, downloadable, data, created_at, updated_at) VALUES (?, 1, ?, ?, ?)`,
			batchID, string(data), formatTime(now), formatTime(now))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save batch %s: %w", batchID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	var rec *models.BatchRecord
	err := withSQLiteRetry(func() error {
		var err error
		rec, err = s.get(ctx, s.db, batchID)
		return err
	})
	return rec, err
}

func (s *SQLiteStore) MarkUndownloadable(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *models.BatchRecord
	err := withSQLiteRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE batches SET downloadable = 0, updated_at = ? WHERE id = ?`,
			formatTime(time.Now().UTC()), batchID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		rec, err = s.get(ctx, s.db, batchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateItemFields(ctx context.Context, batchID, itemID string, upd models.MetadataUpdate) (*models.ItemResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var item models.ItemResult
	err := withSQLiteRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		rec, err := s.get(ctx, tx, batchID)
		if err != nil {
			return err
		}
		target := rec.Item(itemID)
		if target == nil {
			return ErrNotFound
		}
		target.Metadata = upd.Apply(target.Metadata)
		item = *target

		data, err := json.Marshal(rec.Data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE batches SET data = ?, updated_at = ? WHERE id = ?`,
			string(data), formatTime(time.Now().UTC()), batchID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, q queryer, batchID string) (*models.BatchRecord, error) {
	var (
		downloadable       int
		data               string
		createdAt, updated string
	)
	err := q.QueryRowContext(ctx,
		`SELECT downloadable, data, created_at, updated_at FROM batches WHERE id = ?`, batchID).
		Scan(&downloadable, &data, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	rec := &models.BatchRecord{ID: batchID, Downloadable: downloadable != 0}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", batchID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
