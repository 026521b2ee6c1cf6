package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OperatorRow represents an operator account
type OperatorRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// OutcomeRow is one evaluated action as stored
type OutcomeRow struct {
	SessionID string
	Mode      string
	AgentID   string
	AgentName string
	Action    string
	Success   bool
	Source    string
	SimTime   float64
	Situation string // JSON
}

// MatchRow represents a finished match
type MatchRow struct {
	ID        int64
	SessionID string
	Mode      string
	Winner    string
	Draw      bool
	Reason    string
	ScoreA    int
	ScoreB    int
	Duration  float64
	CreatedAt time.Time
}

// ActionSummary aggregates outcomes for one action
type ActionSummary struct {
	Mode        string  `json:"mode"`
	Action      string  `json:"action"`
	Attempts    int     `json:"attempts"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"successRate"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		agent_id TEXT NOT NULL,
		agent_name TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		success INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		sim_time REAL NOT NULL DEFAULT 0,
		situation TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		draw INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		score_a INTEGER NOT NULL DEFAULT 0,
		score_b INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_action ON outcomes(mode, action);
	CREATE INDEX IF NOT EXISTS idx_outcomes_session ON outcomes(session_id);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetSetting returns a stored setting, "" when absent
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// CreateOperator creates an operator account (returns its ID)
func (db *DB) CreateOperator(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO operators (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetOperatorByUsername returns an operator by username, nil when absent
func (db *DB) GetOperatorByUsername(username string) (*OperatorRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM operators WHERE username = ?",
		username,
	)
	o := &OperatorRow{}
	err := row.Scan(&o.ID, &o.Username, &o.PassHash, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM operators WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// InsertOutcomes writes a batch of outcomes in one transaction
func (db *DB) InsertOutcomes(rows []OutcomeRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO outcomes
		(session_id, mode, agent_id, agent_name, action, success, source, sim_time, situation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		sit := sql.NullString{String: r.Situation, Valid: r.Situation != ""}
		if _, err := stmt.Exec(r.SessionID, r.Mode, r.AgentID, r.AgentName, r.Action, r.Success, r.Source, r.SimTime, sit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordMatch stores a finished match and returns its ID
func (db *DB) RecordMatch(m MatchRow) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO matches (session_id, mode, winner, draw, reason, score_a, score_b, duration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.Mode, m.Winner, m.Draw, m.Reason, m.ScoreA, m.ScoreB, m.Duration,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentMatches returns the latest finished matches
func (db *DB) RecentMatches(limit int) ([]MatchRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, mode, winner, draw, reason, score_a, score_b, duration, created_at
		FROM matches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchRow
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Mode, &m.Winner, &m.Draw, &m.Reason, &m.ScoreA, &m.ScoreB, &m.Duration, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// OutcomeSummary aggregates success rates per mode and action. An empty mode
// means every mode.
func (db *DB) OutcomeSummary(mode string) ([]ActionSummary, error) {
	rows, err := db.conn.Query(`
		SELECT mode, action, COUNT(*), SUM(success)
		FROM outcomes
		WHERE ? = '' OR mode = ?
		GROUP BY mode, action
		ORDER BY mode, COUNT(*) DESC`, mode, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ActionSummary
	for rows.Next() {
		var s ActionSummary
		if err := rows.Scan(&s.Mode, &s.Action, &s.Attempts, &s.Successes); err != nil {
			return nil, err
		}
		if s.Attempts > 0 {
			s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// OutcomeCount returns the number of stored outcomes for a session
func (db *DB) OutcomeCount(sessionID string) (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM outcomes WHERE session_id = ?", sessionID).Scan(&n)
	return n, err
}
