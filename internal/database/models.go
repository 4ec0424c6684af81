package database

// Session is a user session identified by an access code.
type Session struct {
	ID                       string  `json:"id"`
	AccessCode               string  `json:"access_code"`
	BenchmarkClicks          int     `json:"benchmark_clicks"`
	ProjectSuggestionsClicks int     `json:"project_suggestions_clicks"`
	CreatedAt                *string `json:"created_at,omitempty"`
	UpdatedAt                *string `json:"updated_at,omitempty"`
}

// SessionSummary is a session with counts of the records it owns.
type SessionSummary struct {
	Session
	ROIProjectCount      int `json:"roi_projects_count"`
	StrategySessionCount int `json:"strategy_sessions_count"`
}

// ROIProject is a calculated ROI project. Derived fields are stored as computed
// at creation time.
type ROIProject struct {
	ID               string   `json:"id"`
	SessionID        string   `json:"session_id"`
	ProjectName      string   `json:"project_name"`
	Description      string   `json:"project_description"`
	InvestmentAmount float64  `json:"investment_amount"`
	Timeframe        int      `json:"timeframe"`
	ExpectedRevenue  float64  `json:"expected_revenue"`
	ExpectedCosts    float64  `json:"expected_costs"`
	RiskLevel        string   `json:"risk_level"`
	CalculationModel string   `json:"calculation_model"`
	ROIResult        float64  `json:"roi_result"`
	NetProfit        float64  `json:"net_profit"`
	BreakEvenMonths  *float64 `json:"break_even_months"`
	MonthlyReturn    float64  `json:"monthly_return"`
	RiskAdjustedROI  float64  `json:"risk_adjusted_roi"`
	EstimatedROI     *float64 `json:"estimated_roi"`
	NPV              *float64 `json:"npv"`
	IRR              *float64 `json:"irr"`
	PaybackPeriod    *float64 `json:"payback_period"`
	CreatedAt        *string  `json:"created_at,omitempty"`
	UpdatedAt        *string  `json:"updated_at,omitempty"`
}

// StrategySession is the strategy portfolio owned by a session.
type StrategySession struct {
	ID                 string            `json:"id"`
	SessionID          string            `json:"session_id"`
	PortfolioName      string            `json:"portfolio_name"`
	ContextHistory     string            `json:"context_history"`
	ContextInitiatives string            `json:"context_initiatives"`
	CreatedAt          *string           `json:"created_at,omitempty"`
	UpdatedAt          *string           `json:"updated_at,omitempty"`
	Projects           []StrategyProject `json:"projects"`
}

// StrategyProject is one project in a strategy portfolio.
type StrategyProject struct {
	ID                string  `json:"id"`
	StrategySessionID string  `json:"strategy_session_id"`
	Name              string  `json:"name"`
	Impact            int     `json:"impact"`
	Complexity        int     `json:"complexity"`
	Category          string  `json:"category"`
	Selected          bool    `json:"selected"`
	Description       string  `json:"description"`
	ExpectedReturn    string  `json:"expected_return"`
	CreatedAt         *string `json:"created_at,omitempty"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	Sessions         int
	ROIProjects      int
	Portfolios       int
	StrategyProjects int
	BenchmarkClicks  int
	SuggestionClicks int
}
