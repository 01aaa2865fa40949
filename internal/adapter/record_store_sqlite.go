package adapter

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	m "regcov.dev/pkg/regcov/internal/model"
)

// SQLiteRecordsFile is the database holding records for the sqlite backend.
const SQLiteRecordsFile = "records.db"

const recordsSchema = `
CREATE TABLE IF NOT EXISTS owners (
	owner TEXT NOT NULL,
	kind TEXT NOT NULL,
	PRIMARY KEY (owner, kind)
);
CREATE TABLE IF NOT EXISTS records (
	owner TEXT NOT NULL,
	kind TEXT NOT NULL,
	resource TEXT NOT NULL,
	hash TEXT NOT NULL,
	PRIMARY KEY (owner, kind, resource)
);
`

// SQLiteRecordStore keeps dependency records in a single SQLite database.
// An owner row without record rows is a saved-but-empty set.
type SQLiteRecordStore struct {
	db   *sql.DB
	kind string
}

// OpenSQLiteRecordStore opens or creates <root>/records.db.
func OpenSQLiteRecordStore(root m.Path, kind string) (*SQLiteRecordStore, error) {
	if kind == "" {
		kind = DefaultRecordKind
	}

	if err := os.MkdirAll(string(root), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create cache root: %w", m.ErrStoreUnavailable, err)
	}

	db, err := openSQLite(filepath.Join(string(root), SQLiteRecordsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: open records db: %w", m.ErrStoreUnavailable, err)
	}

	if _, err := db.Exec(recordsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply records schema: %w", m.ErrStoreUnavailable, err)
	}

	return &SQLiteRecordStore{db: db, kind: kind}, nil
}

// Load implements DependencyRecordStore.
func (s *SQLiteRecordStore) Load(owner string) (m.DependencySet, error) {
	var exists int

	err := s.db.QueryRow("SELECT 1 FROM owners WHERE owner = ? AND kind = ?", owner, s.kind).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return m.DependencySet{}, nil
	}

	if err != nil {
		return m.DependencySet{}, fmt.Errorf("%w: lookup %s: %w", m.ErrStoreUnavailable, owner, err)
	}

	rows, err := s.db.Query(
		"SELECT resource, hash FROM records WHERE owner = ? AND kind = ? ORDER BY resource",
		owner, s.kind,
	)
	if err != nil {
		return m.DependencySet{}, fmt.Errorf("%w: query %s: %w", m.ErrStoreUnavailable, owner, err)
	}

	defer func() { _ = rows.Close() }()

	var records []m.FingerprintRecord

	for rows.Next() {
		var record m.FingerprintRecord
		if err := rows.Scan(&record.Resource, &record.Hash); err != nil {
			return m.DependencySet{}, fmt.Errorf("%w: scan %s: %w", m.ErrStoreUnavailable, owner, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return m.DependencySet{}, fmt.Errorf("%w: iterate %s: %w", m.ErrStoreUnavailable, owner, err)
	}

	return m.NewDependencySet(records...), nil
}

// Save implements DependencyRecordStore.
func (s *SQLiteRecordStore) Save(owner string, set m.DependencySet) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %w", m.ErrStoreUnavailable, err)
	}

	if err := s.replace(tx, owner, set); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: save %s: %w", m.ErrStoreUnavailable, owner, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", m.ErrStoreUnavailable, owner, err)
	}

	return nil
}

func (s *SQLiteRecordStore) replace(tx *sql.Tx, owner string, set m.DependencySet) error {
	if _, err := tx.Exec("DELETE FROM records WHERE owner = ? AND kind = ?", owner, s.kind); err != nil {
		return err
	}

	if _, err := tx.Exec("INSERT OR IGNORE INTO owners (owner, kind) VALUES (?, ?)", owner, s.kind); err != nil {
		return err
	}

	for _, record := range set.Records() {
		_, err := tx.Exec(
			"INSERT INTO records (owner, kind, resource, hash) VALUES (?, ?, ?, ?)",
			owner, s.kind, record.Resource, record.Hash,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// ListOwners implements DependencyRecordStore.
func (s *SQLiteRecordStore) ListOwners() ([]string, error) {
	rows, err := s.db.Query("SELECT owner FROM owners WHERE kind = ?", s.kind)
	if err != nil {
		return nil, fmt.Errorf("%w: list owners: %w", m.ErrStoreUnavailable, err)
	}

	defer func() { _ = rows.Close() }()

	owners := []string{}

	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("%w: scan owner: %w", m.ErrStoreUnavailable, err)
		}

		owners = append(owners, owner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate owners: %w", m.ErrStoreUnavailable, err)
	}

	sort.Strings(owners)

	return owners, nil
}

// Close implements DependencyRecordStore.
func (s *SQLiteRecordStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
