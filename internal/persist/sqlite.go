package persist

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteBackend is the durable backend from spec section 4.9: one table
// for blobs keyed by content hash, one for named directory-tree
// snapshots. modernc.org/sqlite is pure Go (no cgo), which fits an
// in-process embeddable sandbox that must not assume a C toolchain.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a sqlite database at dsn — use
// ":memory:" for an ephemeral, process-local store — and ensures its
// schema exists.
func OpenSQLite(dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: open sqlite: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS blobs (hash TEXT PRIMARY KEY, data BLOB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS snapshots (name TEXT PRIMARY KEY, tree BLOB NOT NULL)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("persist: init schema: %w", err)
		}
	}

	return &SQLiteBackend{db: db}, nil
}

// SaveAll writes every blob and the named tree record inside a single
// transaction, so save(name) either fully lands or has no effect.
func (b *SQLiteBackend) SaveAll(blobs map[string][]byte, name string, tree []byte) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}
	defer tx.Rollback()

	for hash, data := range blobs {
		if _, err := tx.Exec(
			`INSERT INTO blobs (hash, data) VALUES (?, ?) ON CONFLICT(hash) DO UPDATE SET data = excluded.data`,
			hash, data,
		); err != nil {
			return fmt.Errorf("persist: write blob %s: %w", hash, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO snapshots (name, tree) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET tree = excluded.tree`,
		name, tree,
	); err != nil {
		return fmt.Errorf("persist: write snapshot %s: %w", name, err)
	}

	return tx.Commit()
}

func (b *SQLiteBackend) LoadSnapshot(name string) ([]byte, error) {
	var tree []byte
	err := b.db.QueryRow(`SELECT tree FROM snapshots WHERE name = ?`, name).Scan(&tree)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persist: load snapshot %s: %w", name, err)
	}
	return tree, nil
}

func (b *SQLiteBackend) GetBlob(hash string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(`SELECT data FROM blobs WHERE hash = ?`, hash).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persist: get blob %s: %w", hash, err)
	}
	return data, nil
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }
