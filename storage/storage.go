package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/JiwaniZakir/sentinel/session"
)

// Store persists session cookie state per account and an audit trail of runs
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// RunRecord is one audit row for an orchestration run
type RunRecord struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Success    bool      `json:"success"`
	ErrorType  string    `json:"error_type,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewStore opens (and if needed creates) the SQLite database at dbPath
func NewStore(dbPath string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	logger.Debug("Database initialized")
	return store, nil
}

func (s *Store) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			account TEXT PRIMARY KEY,
			cookies TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			success INTEGER NOT NULL,
			error_type TEXT,
			duration_ms INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession upserts the cookie state for account
func (s *Store) SaveSession(account string, st session.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (account, cookies, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(account) DO UPDATE SET cookies = excluded.cookies, updated_at = CURRENT_TIMESTAMP`,
		account, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"account":       account,
		"cookies_count": len(st),
	}).Debug("Session saved")
	return nil
}

// LoadSession returns the stored cookie state for account, if any
func (s *Store) LoadSession(account string) (session.State, bool, error) {
	var data string
	err := s.db.QueryRow(`SELECT cookies FROM sessions WHERE account = ?`, account).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	var st session.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, false, fmt.Errorf("failed to parse stored session: %w", err)
	}
	return st, true, nil
}

// DeleteSession drops the stored cookie state for account
func (s *Store) DeleteSession(account string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE account = ?`, account); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RecordRun appends one audit row
func (s *Store) RecordRun(r RunRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, url, success, error_type, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Success, r.ErrorType, r.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, url, success, COALESCE(error_type, ''), duration_ms, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.URL, &r.Success, &r.ErrorType, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
