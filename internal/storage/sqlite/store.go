// Package sqlite provides the SQLite-backed save store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/storyweft/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/storyweft/internal/storage"
	"github.com/louisbranch/storyweft/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed save persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a saves SQLite store at the provided path and applies
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutSave stores or replaces the status blob for a (story, slot) pair.
func (s *Store) PutSave(ctx context.Context, record storage.SaveRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Story = strings.TrimSpace(record.Story)
	record.Slot = strings.TrimSpace(record.Slot)
	if record.Story == "" {
		return fmt.Errorf("story is required")
	}
	if record.Slot == "" {
		return fmt.Errorf("slot is required")
	}
	if len(record.Status) == 0 {
		return fmt.Errorf("status is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO saves (story, slot, status, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (story, slot) DO UPDATE SET
	status = excluded.status,
	updated_at = excluded.updated_at
`,
		record.Story,
		record.Slot,
		record.Status,
		record.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put save: %w", err)
	}
	return nil
}

// GetSave loads the status blob for a (story, slot) pair.
func (s *Store) GetSave(ctx context.Context, story, slot string) (storage.SaveRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SaveRecord{}, err
	}
	record := storage.SaveRecord{Story: strings.TrimSpace(story), Slot: strings.TrimSpace(slot)}
	var updatedAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT status, updated_at FROM saves WHERE story = ? AND slot = ?
`, record.Story, record.Slot).Scan(&record.Status, &updatedAt)
	if err == sql.ErrNoRows {
		return storage.SaveRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SaveRecord{}, fmt.Errorf("get save: %w", err)
	}
	record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return record, nil
}

// ListSaves lists a story's save slots, most recently updated first.
func (s *Store) ListSaves(ctx context.Context, story string) ([]storage.SaveRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT slot, status, updated_at FROM saves
WHERE story = ?
ORDER BY updated_at DESC, slot ASC
`, strings.TrimSpace(story))
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var records []storage.SaveRecord
	for rows.Next() {
		record := storage.SaveRecord{Story: strings.TrimSpace(story)}
		var updatedAt int64
		if err := rows.Scan(&record.Slot, &record.Status, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saves: %w", err)
	}
	return records, nil
}

// DeleteSave removes a save slot. Deleting a missing slot is not an error.
func (s *Store) DeleteSave(ctx context.Context, story, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM saves WHERE story = ? AND slot = ?
`, strings.TrimSpace(story), strings.TrimSpace(slot))
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	return nil
}
