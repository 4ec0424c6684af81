package roi

import (
	"strings"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/session"
	"go.uber.org/zap"
)

// Service stores calculated projects for a session.
type Service struct {
	db     *database.DB
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(db *database.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// Calculate derives metrics without storing anything. It needs no session.
func (s *Service) Calculate(in Input) (*Metrics, error) {
	return Calculate(in)
}

// Save validates and calculates in, then stores the project with its metrics.
// When only the store fails, the computed metrics are still returned with the
// backend error so the caller can show them.
func (s *Service) Save(h session.Handle, in Input) (*database.ROIProject, *Metrics, error) {
	if !h.Valid() {
		return nil, nil, apperr.ErrNoActiveSession
	}

	in.ProjectName = strings.TrimSpace(in.ProjectName)
	if in.ProjectName == "" {
		return nil, nil, apperr.Validation("project_name", "project name is required")
	}

	m, err := Calculate(in)
	if err != nil {
		return nil, nil, err
	}

	p := NewRecord(h.ID, in, m)
	if err := s.db.InsertROIProject(p); err != nil {
		s.logger.Error("saving ROI project failed",
			zap.String("op", "roi.save"), zap.String("session_id", h.ID), zap.Error(err))
		return nil, m, apperr.Backend("saving project", err)
	}

	s.logger.Info("ROI project saved",
		zap.String("op", "roi.save"), zap.String("session_id", h.ID), zap.String("project_id", p.ID))
	return p, m, nil
}

// List returns the session's projects, newest first.
func (s *Service) List(h session.Handle) ([]database.ROIProject, error) {
	if !h.Valid() {
		return nil, apperr.ErrNoActiveSession
	}
	projects, err := s.db.GetROIProjects(h.ID)
	if err != nil {
		return nil, apperr.Backend("loading projects", err)
	}
	return projects, nil
}

// Delete removes one of the session's projects. Deleting a project that does
// not exist, or belongs to another session, is a no-op.
func (s *Service) Delete(h session.Handle, id string) error {
	if !h.Valid() {
		return apperr.ErrNoActiveSession
	}
	deleted, err := s.db.DeleteROIProject(h.ID, id)
	if err != nil {
		return apperr.Backend("deleting project", err)
	}
	if deleted {
		s.logger.Info("ROI project deleted",
			zap.String("op", "roi.delete"), zap.String("session_id", h.ID), zap.String("project_id", id))
	}
	return nil
}

// NewRecord builds the stored form of a calculation.
func NewRecord(sessionID string, in Input, m *Metrics) *database.ROIProject {
	risk := in.Risk
	if risk == "" {
		risk = RiskMedium
	}
	model := in.Model
	if model == "" {
		model = ModelSimple
	}
	return &database.ROIProject{
		SessionID:        sessionID,
		ProjectName:      in.ProjectName,
		Description:      strings.TrimSpace(in.Description),
		InvestmentAmount: in.Investment,
		Timeframe:        in.TimeframeMonths,
		ExpectedRevenue:  in.ExpectedRevenue,
		ExpectedCosts:    in.ExpectedCosts,
		RiskLevel:        string(risk),
		CalculationModel: string(model),
		ROIResult:        m.ROI,
		NetProfit:        m.NetProfit,
		BreakEvenMonths:  m.BreakEvenMonths,
		MonthlyReturn:    m.MonthlyReturn,
		RiskAdjustedROI:  m.RiskAdjustedROI,
		EstimatedROI:     in.EstimatedROI,
		NPV:              m.NPV,
		IRR:              m.IRR,
		PaybackPeriod:    m.PaybackPeriod,
	}
}
