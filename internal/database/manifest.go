package database

import (
	"context"
	"fmt"
	"log/slog"

	"assetfs/internal/asset"
)

// manifestDDL holds the resolved view of the search path: one row per
// key, carrying the root that claims it after shadowing.
const manifestDDL = `
CREATE TABLE IF NOT EXISTS assets (
	key      TEXT PRIMARY KEY,
	priority INTEGER NOT NULL,
	source   TEXT NOT NULL,
	method   TEXT NOT NULL,
	size     INTEGER NOT NULL
);`

// ManifestWriter persists a resolved asset listing into SQLite for
// external tooling to query.
type ManifestWriter struct {
	db        *Database
	batchSize int
}

// NewManifestWriter creates a manifest writer over an open database
func NewManifestWriter(db *Database) *ManifestWriter {
	return &ManifestWriter{
		db:        db,
		batchSize: 500,
	}
}

// Write replaces the manifest contents with the given entries, in
// batched transactions.
func (w *ManifestWriter) Write(ctx context.Context, entries []asset.TableEntry) error {
	if _, err := w.db.Exec(ctx, manifestDDL); err != nil {
		return fmt.Errorf("creating manifest table: %w", err)
	}
	if _, err := w.db.Exec(ctx, "DELETE FROM assets"); err != nil {
		return fmt.Errorf("clearing manifest table: %w", err)
	}

	for start := 0; start < len(entries); start += w.batchSize {
		end := start + w.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := w.writeBatch(ctx, entries[start:end]); err != nil {
			return err
		}
	}

	slog.Debug("Manifest written", "entries", len(entries), "path", w.db.path)
	return nil
}

func (w *ManifestWriter) writeBatch(ctx context.Context, entries []asset.TableEntry) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO assets (key, priority, source, method, size) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing manifest insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, e.Key, e.Priority, e.Source, e.Method.String(), e.UncompressedSize)
		if err != nil {
			return fmt.Errorf("inserting manifest row for %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing manifest batch: %w", err)
	}
	return nil
}
