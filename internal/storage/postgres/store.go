// Package postgres provides a PostgreSQL implementation of the storage
// interfaces. Embeddings always land in a BYTEA column; when the pgvector
// extension is available they are mirrored into a vector column as well,
// which keeps them queryable with vector operators.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/scrypster/recordlink/internal/storage"
	"github.com/scrypster/recordlink/pkg/types"
)

// Store implements storage.RecordStore and storage.EmbeddingCache on a
// PostgreSQL database.
type Store struct {
	db                *sql.DB
	pgvectorAvailable bool // true when the pgvector extension is present
}

// Compile-time interface checks.
var (
	_ storage.RecordStore    = (*Store)(nil)
	_ storage.EmbeddingCache = (*Store)(nil)
)

// Open connects to PostgreSQL using the given DSN, detects pgvector, and
// applies the schema.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: dsn is required", storage.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.applySchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// applySchema creates the records and embeddings tables. The embedding column
// type depends on whether pgvector is installed.
func (s *Store) applySchema() error {
	// Try to enable pgvector; absence is not fatal.
	if _, err := s.db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err == nil {
		s.pgvectorAvailable = true
	}

	const recordsDDL = `
		CREATE TABLE IF NOT EXISTS records (
			id            TEXT PRIMARY KEY,
			cluster_id    TEXT NOT NULL,
			name          TEXT,
			address       TEXT,
			city          TEXT,
			date_of_birth TEXT,
			created_at    TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_records_cluster ON records(cluster_id);
	`
	if _, err := s.db.Exec(recordsDDL); err != nil {
		return fmt.Errorf("postgres: failed to create records table: %w", err)
	}

	// Embeddings always land in the BYTEA column; the pgvector column is
	// additive so the same rows stay readable either way.
	const embeddingsDDL = `
		CREATE TABLE IF NOT EXISTS embeddings (
			input_text TEXT PRIMARY KEY,
			embedding  BYTEA NOT NULL,
			dimension  INTEGER NOT NULL,
			model      TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.db.Exec(embeddingsDDL); err != nil {
		return fmt.Errorf("postgres: failed to create embeddings table: %w", err)
	}

	if s.pgvectorAvailable {
		if _, err := s.db.Exec(`ALTER TABLE embeddings ADD COLUMN IF NOT EXISTS embedding_vec vector`); err != nil {
			return fmt.Errorf("postgres: failed to add embedding_vec column: %w", err)
		}
	}
	return nil
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
		VALUES ($1, $2, $3, $4, $5, $6)
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
		return fmt.Errorf("postgres: failed to store record %q: %w", rec.ID, err)
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
		FROM records WHERE id = $1
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return types.Record{}, storage.ErrNotFound
		}
		return types.Record{}, fmt.Errorf("postgres: failed to get record %q: %w", id, err)
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
		return nil, fmt.Errorf("postgres: failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: error iterating records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: failed to count records: %w", err)
	}
	return n, nil
}

// TruncateForTest removes all rows from both tables. Defined on the package
// (not in a _test file) so the postgres_test package can reach the unexported
// db field; tests only.
func (s *Store) TruncateForTest(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE TABLE records, embeddings`); err != nil {
		return fmt.Errorf("postgres: failed to truncate: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one records row into a types.Record.
func scanRecord(row scanner) (types.Record, error) {
	var (
		id, clusterID         string
		name, addr, city, dob sql.NullString
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
