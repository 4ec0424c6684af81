package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Click counters tracked per session.
const (
	CounterBenchmark   = "benchmark_clicks"
	CounterSuggestions = "project_suggestions_clicks"
)

const sessionColumns = `id, access_code, benchmark_clicks, project_suggestions_clicks, created_at, updated_at`

// FindOrCreateSession returns the session for code, creating it if needed.
// The insert is a no-op when the code already exists, so concurrent callers
// with the same code always end up with the same record. created reports
// whether this call inserted it.
func (db *DB) FindOrCreateSession(code string) (s *Session, created bool, err error) {
	result, err := db.conn.Exec(
		`INSERT INTO user_sessions (id, access_code) VALUES (?, ?)
		ON CONFLICT(access_code) DO NOTHING`,
		uuid.NewString(), code,
	)
	if err != nil {
		return nil, false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	s, err = db.GetSessionByCode(code)
	if err != nil {
		return nil, false, err
	}
	if s == nil {
		return nil, false, fmt.Errorf("session for code vanished after insert")
	}
	return s, n == 1, nil
}

// GetSession returns a session by id, or nil if it does not exist.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.conn.QueryRow(`SELECT `+sessionColumns+` FROM user_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetSessionByCode returns a session by exact access code, or nil.
func (db *DB) GetSessionByCode(code string) (*Session, error) {
	row := db.conn.QueryRow(`SELECT `+sessionColumns+` FROM user_sessions WHERE access_code = ?`, code)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.AccessCode, &s.BenchmarkClicks, &s.ProjectSuggestionsClicks,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListSessions returns all sessions newest first with their record counts.
// A non-empty search filters by case-insensitive access code substring.
func (db *DB) ListSessions(search string) ([]SessionSummary, error) {
	query := `
		SELECT s.id, s.access_code, s.benchmark_clicks, s.project_suggestions_clicks,
			s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM roi_projects r WHERE r.session_id = s.id),
			(SELECT COUNT(*) FROM strategy_sessions ss WHERE ss.session_id = s.id)
		FROM user_sessions s`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE LOWER(s.access_code) LIKE ?`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += ` ORDER BY s.created_at DESC, s.rowid DESC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.AccessCode, &s.BenchmarkClicks, &s.ProjectSuggestionsClicks,
			&s.CreatedAt, &s.UpdatedAt, &s.ROIProjectCount, &s.StrategySessionCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// IncrementClicks atomically adds one to a session's click counter.
func (db *DB) IncrementClicks(sessionID, counter string) error {
	if counter != CounterBenchmark && counter != CounterSuggestions {
		return fmt.Errorf("unknown click counter %q", counter)
	}
	result, err := db.conn.Exec(
		fmt.Sprintf(`UPDATE user_sessions SET %[1]s = %[1]s + 1, updated_at = datetime('now') WHERE id = ?`, counter),
		sessionID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// DeleteSession removes a session and, through cascading foreign keys, every
// record it owns.
func (db *DB) DeleteSession(id string) error {
	_, err := db.conn.Exec(`DELETE FROM user_sessions WHERE id = ?`, id)
	return err
}
