package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// GetStrategySession returns the session's portfolio with its projects in
// saved order, or nil if the session has no portfolio yet.
func (db *DB) GetStrategySession(sessionID string) (*StrategySession, error) {
	row := db.conn.QueryRow(
		`SELECT id, session_id, portfolio_name, context_history, context_initiatives, created_at, updated_at
		FROM strategy_sessions WHERE session_id = ?`, sessionID,
	)

	var s StrategySession
	if err := row.Scan(&s.ID, &s.SessionID, &s.PortfolioName, &s.ContextHistory,
		&s.ContextInitiatives, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := db.conn.Query(
		`SELECT id, strategy_session_id, name, impact, complexity, category, selected,
			description, expected_return, created_at
		FROM strategy_projects WHERE strategy_session_id = ?
		ORDER BY position, rowid`, s.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s.Projects = []StrategyProject{}
	for rows.Next() {
		var p StrategyProject
		var selected int
		if err := rows.Scan(&p.ID, &p.StrategySessionID, &p.Name, &p.Impact, &p.Complexity,
			&p.Category, &selected, &p.Description, &p.ExpectedReturn, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Selected = selected == 1
		s.Projects = append(s.Projects, p)
	}
	return &s, rows.Err()
}

// UpsertStrategyConfig creates or updates the session's single portfolio row
// without touching its projects. It returns the portfolio id.
func (db *DB) UpsertStrategyConfig(sessionID, name, history, initiatives string) (string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	id, err := upsertStrategyConfig(tx, sessionID, name, history, initiatives)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	return id, tx.Commit()
}

// ReplaceStrategy saves the portfolio configuration and replaces all of its
// projects with the given list in one transaction. Saving never merges: the
// stored projects are exactly the ones passed in. If any insert fails the
// previous projects are kept.
func (db *DB) ReplaceStrategy(sessionID, name, history, initiatives string, projects []StrategyProject) (string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}

	id, err := upsertStrategyConfig(tx, sessionID, name, history, initiatives)
	if err != nil {
		tx.Rollback()
		return "", err
	}

	if _, err := tx.Exec(`DELETE FROM strategy_projects WHERE strategy_session_id = ?`, id); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("clearing projects: %w", err)
	}

	for i, p := range projects {
		pid := p.ID
		if pid == "" {
			pid = uuid.NewString()
		}
		selected := 0
		if p.Selected {
			selected = 1
		}
		_, err := tx.Exec(
			`INSERT INTO strategy_projects
			(id, strategy_session_id, name, impact, complexity, category, selected,
			description, expected_return, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pid, id, p.Name, p.Impact, p.Complexity, p.Category, selected,
			p.Description, p.ExpectedReturn, i,
		)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("inserting project %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func upsertStrategyConfig(tx *sql.Tx, sessionID, name, history, initiatives string) (string, error) {
	_, err := tx.Exec(
		`INSERT INTO strategy_sessions (id, session_id, portfolio_name, context_history, context_initiatives)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			portfolio_name = excluded.portfolio_name,
			context_history = excluded.context_history,
			context_initiatives = excluded.context_initiatives,
			updated_at = datetime('now')`,
		uuid.NewString(), sessionID, name, history, initiatives,
	)
	if err != nil {
		return "", fmt.Errorf("saving portfolio: %w", err)
	}

	var id string
	if err := tx.QueryRow(`SELECT id FROM strategy_sessions WHERE session_id = ?`, sessionID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
