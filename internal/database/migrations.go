package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "backend schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS user_sessions (
    id TEXT PRIMARY KEY,
    access_code TEXT UNIQUE NOT NULL,
    benchmark_clicks INTEGER NOT NULL DEFAULT 0,
    project_suggestions_clicks INTEGER NOT NULL DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS roi_projects (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES user_sessions(id) ON DELETE CASCADE,
    project_name TEXT NOT NULL,
    project_description TEXT NOT NULL DEFAULT '',
    investment_amount REAL NOT NULL CHECK(investment_amount > 0),
    timeframe INTEGER NOT NULL,
    expected_revenue REAL NOT NULL DEFAULT 0,
    expected_costs REAL NOT NULL DEFAULT 0,
    risk_level TEXT NOT NULL,
    calculation_model TEXT NOT NULL,
    roi_result REAL NOT NULL,
    net_profit REAL NOT NULL,
    break_even_months REAL,
    monthly_return REAL NOT NULL,
    risk_adjusted_roi REAL NOT NULL,
    estimated_roi REAL,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS strategy_sessions (
    id TEXT PRIMARY KEY,
    session_id TEXT UNIQUE NOT NULL REFERENCES user_sessions(id) ON DELETE CASCADE,
    portfolio_name TEXT NOT NULL,
    context_history TEXT NOT NULL DEFAULT '',
    context_initiatives TEXT NOT NULL DEFAULT '',
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS strategy_projects (
    id TEXT PRIMARY KEY,
    strategy_session_id TEXT NOT NULL REFERENCES strategy_sessions(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    impact INTEGER NOT NULL CHECK(impact BETWEEN 1 AND 10),
    complexity INTEGER NOT NULL CHECK(complexity BETWEEN 1 AND 10),
    category TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    expected_return TEXT NOT NULL DEFAULT '',
    selected INTEGER NOT NULL DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_roi_projects_session ON roi_projects(session_id);
CREATE INDEX IF NOT EXISTS idx_strategy_projects_strategy ON strategy_projects(strategy_session_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "discounted metrics and project ordering",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
ALTER TABLE roi_projects ADD COLUMN npv REAL;
ALTER TABLE roi_projects ADD COLUMN irr REAL;
ALTER TABLE roi_projects ADD COLUMN payback_period REAL;
ALTER TABLE strategy_projects ADD COLUMN position INTEGER NOT NULL DEFAULT 0;
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
