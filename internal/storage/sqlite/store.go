// Package sqlite provides SQLite-backed implementations of the storage
// interfaces using the pure-Go modernc.org/sqlite driver, so the engine runs
// without cgo or an external database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/recordlink/internal/storage"
	"github.com/scrypster/recordlink/pkg/types"
)

// schema is applied on every open. CREATE TABLE IF NOT EXISTS keeps reopening
// an existing database cheap and idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS records (
	id            TEXT PRIMARY KEY,
	cluster_id    TEXT NOT NULL,
	name          TEXT,
	address       TEXT,
	city          TEXT,
	date_of_birth TEXT,
	created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_records_cluster ON records(cluster_id);

CREATE TABLE IF NOT EXISTS embeddings (
	text_hash  TEXT PRIMARY KEY,
	input_text TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store implements storage.RecordStore and storage.EmbeddingCache on a single
// SQLite database file.
type Store struct {
	db *sql.DB
}

// Compile-time interface checks.
var (
	_ storage.RecordStore    = (*Store)(nil)
	_ storage.EmbeddingCache = (*Store)(nil)
)

// Open opens (creating if necessary) a SQLite database at dsn and applies the
// schema. Use ":memory:" for an ephemeral store in tests.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: dsn is required", storage.ErrInvalidInput)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %q: %w", dsn, err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a record by ID using upsert semantics.
func (s *Store) Put(ctx context.Context, rec types.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record ID is required", storage.ErrInvalidInput)
	}

	const query = `
		INSERT INTO records (id, cluster_id, name, address, city, date_of_birth)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cluster_id    = excluded.cluster_id,
			name          = excluded.name,
			address       = excluded.address,
			city          = excluded.city,
			date_of_birth = excluded.date_of_birth
	`

	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.ClusterID,
		fieldArg(rec, types.FieldName),
		fieldArg(rec, types.FieldAddress),
		fieldArg(rec, types.FieldCity),
		fieldArg(rec, types.FieldDateOfBirth))
	if err != nil {
		return fmt.Errorf("sqlite: failed to store record %q: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a record by ID. Returns storage.ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (types.Record, error) {
	if id == "" {
		return types.Record{}, fmt.Errorf("%w: record ID is required", storage.ErrInvalidInput)
	}

	const query = `
		SELECT id, cluster_id, name, address, city, date_of_birth
		FROM records WHERE id = ?
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return types.Record{}, storage.ErrNotFound
		}
		return types.Record{}, fmt.Errorf("sqlite: failed to get record %q: %w", id, err)
	}
	return rec, nil
}

// List returns all stored records ordered by ID.
func (s *Store) List(ctx context.Context) ([]types.Record, error) {
	const query = `
		SELECT id, cluster_id, name, address, city, date_of_birth
		FROM records ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count records: %w", err)
	}
	return n, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one records row into a types.Record. SQL NULL columns
// become nil field values (collected but missing); every schema key is always
// present on a stored record.
func scanRecord(row scanner) (types.Record, error) {
	var (
		id, clusterID           string
		name, addr, city, dob   sql.NullString
	)
	if err := row.Scan(&id, &clusterID, &name, &addr, &city, &dob); err != nil {
		return types.Record{}, err
	}

	fields := map[string]*string{
		types.FieldName:        nullToPtr(name),
		types.FieldAddress:     nullToPtr(addr),
		types.FieldCity:        nullToPtr(city),
		types.FieldDateOfBirth: nullToPtr(dob),
	}
	return types.Record{ID: id, ClusterID: clusterID, Fields: fields}, nil
}

// fieldArg converts a record field value into a driver argument, mapping a
// missing value to SQL NULL.
func fieldArg(rec types.Record, field string) any {
	if v := rec.Fields[field]; v != nil {
		return *v
	}
	return nil
}

// nullToPtr converts a nullable column into an optional field value.
func nullToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
