package database

import (
	"database/sql"

	"github.com/google/uuid"
)

const roiProjectColumns = `id, session_id, project_name, project_description, investment_amount,
	timeframe, expected_revenue, expected_costs, risk_level, calculation_model,
	roi_result, net_profit, break_even_months, monthly_return, risk_adjusted_roi,
	estimated_roi, npv, irr, payback_period, created_at, updated_at`

// InsertROIProject stores a calculated project and fills in its ID and timestamps.
func (db *DB) InsertROIProject(p *ROIProject) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := db.conn.Exec(
		`INSERT INTO roi_projects
		(id, session_id, project_name, project_description, investment_amount,
		timeframe, expected_revenue, expected_costs, risk_level, calculation_model,
		roi_result, net_profit, break_even_months, monthly_return, risk_adjusted_roi,
		estimated_roi, npv, irr, payback_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SessionID, p.ProjectName, p.Description, p.InvestmentAmount,
		p.Timeframe, p.ExpectedRevenue, p.ExpectedCosts, p.RiskLevel, p.CalculationModel,
		p.ROIResult, p.NetProfit, p.BreakEvenMonths, p.MonthlyReturn, p.RiskAdjustedROI,
		p.EstimatedROI, p.NPV, p.IRR, p.PaybackPeriod,
	)
	if err != nil {
		return err
	}

	row := db.conn.QueryRow(`SELECT created_at, updated_at FROM roi_projects WHERE id = ?`, p.ID)
	return row.Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetROIProjects returns a session's projects, newest first.
func (db *DB) GetROIProjects(sessionID string) ([]ROIProject, error) {
	rows, err := db.conn.Query(
		`SELECT `+roiProjectColumns+` FROM roi_projects
		WHERE session_id = ? ORDER BY created_at DESC, rowid DESC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []ROIProject
	for rows.Next() {
		p, err := scanROIProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// GetROIProject returns one project owned by the session, or nil.
func (db *DB) GetROIProject(sessionID, id string) (*ROIProject, error) {
	row := db.conn.QueryRow(
		`SELECT `+roiProjectColumns+` FROM roi_projects WHERE id = ? AND session_id = ?`,
		id, sessionID,
	)
	p, err := scanROIProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// DeleteROIProject removes a project owned by the session. It reports whether a
// row was deleted.
func (db *DB) DeleteROIProject(sessionID, id string) (bool, error) {
	result, err := db.conn.Exec(
		`DELETE FROM roi_projects WHERE id = ? AND session_id = ?`, id, sessionID,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanROIProject(s scanner) (*ROIProject, error) {
	var p ROIProject
	err := s.Scan(&p.ID, &p.SessionID, &p.ProjectName, &p.Description, &p.InvestmentAmount,
		&p.Timeframe, &p.ExpectedRevenue, &p.ExpectedCosts, &p.RiskLevel, &p.CalculationModel,
		&p.ROIResult, &p.NetProfit, &p.BreakEvenMonths, &p.MonthlyReturn, &p.RiskAdjustedROI,
		&p.EstimatedROI, &p.NPV, &p.IRR, &p.PaybackPeriod, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
