package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/corkboard/internal/checksum"
	"github.com/starford/corkboard/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS board (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// casesKey is the single key the whole collection lives under.
const casesKey = "cases"

// SQLite implements Provider on a one-row key/value table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Load reads the stored collection. Missing row means first run.
func (s *SQLite) Load() ([]models.Case, error) {
	var data, cs string
	err := s.conn.QueryRow(`SELECT data, checksum FROM board WHERE key = ?`, casesKey).Scan(&data, &cs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}
	if !checksum.Matches([]byte(data), cs) {
		return nil, fmt.Errorf("storage: load: checksum mismatch, record corrupted")
	}
	var cases []models.Case
	if err := json.Unmarshal([]byte(data), &cases); err != nil {
		return nil, fmt.Errorf("storage: load: decode: %w", err)
	}
	return cases, nil
}

// Save overwrites the collection wholesale.
func (s *SQLite) Save(cases []models.Case) error {
	data, err := json.Marshal(cases)
	if err != nil {
		return fmt.Errorf("storage: save: encode: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO board (key, data, checksum, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			data       = excluded.data,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, casesKey, string(data), checksum.Sum(data))
	if err != nil {
		return fmt.Errorf("storage: save: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
