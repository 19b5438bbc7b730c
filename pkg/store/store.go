// Package store persists design matrices in a SQLite database.
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fmridesign/pkg/design"
)

// ErrNotFound is returned when no stored matrix matches the request.
var ErrNotFound = errors.New("store: matrix not found")

const schema = `
CREATE TABLE IF NOT EXISTS design_matrices (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	n_rows      INTEGER NOT NULL,
	n_cols      INTEGER NOT NULL,
	data        BLOB,
	meta_json   TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_design_matrices_name ON design_matrices(name);
`

// Record describes a stored matrix without its data.
type Record struct {
	ID        string
	Name      string
	Rows      int
	Cols      int
	CreatedAt time.Time
}

// Store saves and loads design matrices.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores m under name and returns its record, keyed by a new id. Saving under an
// existing name keeps the older versions; LoadByName returns the latest.
func (s *Store) Save(name string, m *design.Matrix) (Record, error) {
	if name == "" {
		return Record{}, fmt.Errorf("%w: empty name", design.ErrInvalidArgument)
	}
	snap := m.Snapshot()
	meta, err := json.Marshal(snap)
	if err != nil {
		return Record{}, fmt.Errorf("marshal metadata: %w", err)
	}

	rec := Record{
		ID:        uuid.New().String(),
		Name:      name,
		Rows:      snap.Rows,
		Cols:      len(snap.Columns),
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.Exec(
		`INSERT INTO design_matrices (id, name, n_rows, n_cols, data, meta_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Rows, rec.Cols, encodeValues(snap.Data), string(meta),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert matrix: %w", err)
	}
	return rec, nil
}

// Load returns the matrix stored under id.
func (s *Store) Load(id string) (*design.Matrix, error) {
	row := s.db.QueryRow(`SELECT data, meta_json FROM design_matrices WHERE id = ?`, id)
	return scanMatrix(row, id)
}

// LoadByName returns the most recently saved matrix called name.
func (s *Store) LoadByName(name string) (*design.Matrix, error) {
	row := s.db.QueryRow(
		`SELECT data, meta_json FROM design_matrices WHERE name = ?
		 ORDER BY rowid DESC LIMIT 1`, name,
	)
	return scanMatrix(row, name)
}

func scanMatrix(row *sql.Row, key string) (*design.Matrix, error) {
	var (
		blob     []byte
		metaJSON string
	)
	if err := row.Scan(&blob, &metaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("get matrix %s: %w", key, err)
	}
	var snap design.Snapshot
	if err := json.Unmarshal([]byte(metaJSON), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	snap.Data = decodeValues(blob)
	m, err := design.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("rebuild matrix %s: %w", key, err)
	}
	return m, nil
}

// List returns all stored records, newest first.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, name, n_rows, n_cols, created_at FROM design_matrices
		 ORDER BY rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list matrices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			createdStr string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Rows, &rec.Cols, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes the matrix stored under id.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM design_matrices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete matrix: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete matrix: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func encodeValues(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeValues(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}
