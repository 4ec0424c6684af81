package portfolio

import (
	"math"
	"strings"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/session"
	"go.uber.org/zap"
)

// DefaultName is used when a portfolio is saved without a name.
const DefaultName = "Novo Portfólio"

// Config is the editable portfolio header.
type Config struct {
	Name               string `json:"portfolio_name"`
	ContextHistory     string `json:"context_history"`
	ContextInitiatives string `json:"context_initiatives"`
}

// ProjectInput is a manually entered project.
type ProjectInput struct {
	Name           string `json:"name"`
	Impact         int    `json:"impact"`
	Complexity     int    `json:"complexity"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	ExpectedReturn string `json:"expected_return"`
}

// Suggestion is a project proposed by the advisor. Scores may be fractional
// or out of range and the category may be unknown; AddSuggestions normalises
// them.
type Suggestion struct {
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Impact         float64 `json:"impact"`
	Complexity     float64 `json:"complexity"`
	Description    string  `json:"description"`
	ExpectedReturn string  `json:"expectedReturn"`
	Selected       bool    `json:"selected"`
}

// Service manages the one strategy portfolio each session owns.
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

// Load returns the session's portfolio, or nil if none has been saved.
func (s *Service) Load(h session.Handle) (*database.StrategySession, error) {
	if !h.Valid() {
		return nil, apperr.ErrNoActiveSession
	}
	ss, err := s.db.GetStrategySession(h.ID)
	if err != nil {
		return nil, apperr.Backend("loading portfolio", err)
	}
	return ss, nil
}

// SaveConfig updates the portfolio header, creating the portfolio if needed.
// Projects are left as they are.
func (s *Service) SaveConfig(h session.Handle, cfg Config) (*database.StrategySession, error) {
	if !h.Valid() {
		return nil, apperr.ErrNoActiveSession
	}
	cfg = normalizeConfig(cfg)
	if _, err := s.db.UpsertStrategyConfig(h.ID, cfg.Name, cfg.ContextHistory, cfg.ContextInitiatives); err != nil {
		s.logger.Error("saving portfolio config failed",
			zap.String("op", "portfolio.save_config"), zap.String("session_id", h.ID), zap.Error(err))
		return nil, apperr.Backend("saving portfolio", err)
	}
	return s.Load(h)
}

// Replace saves cfg and makes projects the portfolio's complete project list.
// Either everything is stored or nothing changes.
func (s *Service) Replace(h session.Handle, cfg Config, projects []database.StrategyProject) (*database.StrategySession, error) {
	if !h.Valid() {
		return nil, apperr.ErrNoActiveSession
	}
	for i := range projects {
		if err := validateStored(&projects[i]); err != nil {
			return nil, err
		}
	}

	cfg = normalizeConfig(cfg)
	if _, err := s.db.ReplaceStrategy(h.ID, cfg.Name, cfg.ContextHistory, cfg.ContextInitiatives, projects); err != nil {
		s.logger.Error("saving portfolio failed",
			zap.String("op", "portfolio.replace"), zap.String("session_id", h.ID), zap.Error(err))
		return nil, apperr.Backend("saving portfolio", err)
	}

	s.logger.Info("portfolio saved",
		zap.String("op", "portfolio.replace"), zap.String("session_id", h.ID), zap.Int("projects", len(projects)))
	return s.Load(h)
}

// AddProject validates a manual project and appends it, selected.
func (s *Service) AddProject(h session.Handle, in ProjectInput) (*database.StrategySession, error) {
	cur, err := s.current(h)
	if err != nil {
		return nil, err
	}

	p := database.StrategyProject{
		Name:           strings.TrimSpace(in.Name),
		Impact:         in.Impact,
		Complexity:     in.Complexity,
		Category:       in.Category,
		Description:    strings.TrimSpace(in.Description),
		ExpectedReturn: strings.TrimSpace(in.ExpectedReturn),
		Selected:       true,
	}
	if err := validateStored(&p); err != nil {
		return nil, err
	}

	return s.Replace(h, configOf(cur), append(cur.Projects, p))
}

// RemoveProject drops a project. Unknown ids are ignored.
func (s *Service) RemoveProject(h session.Handle, id string) (*database.StrategySession, error) {
	cur, err := s.current(h)
	if err != nil {
		return nil, err
	}

	kept := make([]database.StrategyProject, 0, len(cur.Projects))
	for _, p := range cur.Projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(cur.Projects) {
		return cur, nil
	}
	return s.Replace(h, configOf(cur), kept)
}

// ToggleSelected flips a project's selected flag.
func (s *Service) ToggleSelected(h session.Handle, id string) (*database.StrategySession, error) {
	cur, err := s.current(h)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cur.Projects {
		if cur.Projects[i].ID == id {
			cur.Projects[i].Selected = !cur.Projects[i].Selected
			found = true
		}
	}
	if !found {
		return nil, apperr.Validation("id", "project not found")
	}
	return s.Replace(h, configOf(cur), cur.Projects)
}

// AddSuggestions appends the selected suggestions, normalised, to the
// portfolio. At least one suggestion must be selected.
func (s *Service) AddSuggestions(h session.Handle, suggestions []Suggestion) (*database.StrategySession, error) {
	cur, err := s.current(h)
	if err != nil {
		return nil, err
	}

	projects := cur.Projects
	added := 0
	for _, sg := range suggestions {
		if !sg.Selected {
			continue
		}
		p, ok := NormalizeSuggestion(sg)
		if !ok {
			continue
		}
		projects = append(projects, p)
		added++
	}
	if added == 0 {
		return nil, apperr.Validation("suggestions", "select at least one suggestion")
	}
	return s.Replace(h, configOf(cur), projects)
}

// NormalizeSuggestion converts an advisor suggestion into a storable project:
// scores are rounded and clamped to [1,10] and an unknown category becomes
// Core. Suggestions without a name are rejected.
func NormalizeSuggestion(sg Suggestion) (database.StrategyProject, bool) {
	name := strings.TrimSpace(sg.Name)
	if name == "" {
		return database.StrategyProject{}, false
	}
	cat, ok := ParseCategory(sg.Category)
	if !ok {
		cat = CategoryCore
	}
	return database.StrategyProject{
		Name:           name,
		Impact:         int(math.Round(clampScore(sg.Impact))),
		Complexity:     int(math.Round(clampScore(sg.Complexity))),
		Category:       string(cat),
		Description:    strings.TrimSpace(sg.Description),
		ExpectedReturn: strings.TrimSpace(sg.ExpectedReturn),
		Selected:       true,
	}, true
}

// current loads the portfolio, or an empty default one if none exists yet.
func (s *Service) current(h session.Handle) (*database.StrategySession, error) {
	cur, err := s.Load(h)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		cur = &database.StrategySession{SessionID: h.ID, PortfolioName: DefaultName}
	}
	return cur, nil
}

func configOf(ss *database.StrategySession) Config {
	return Config{
		Name:               ss.PortfolioName,
		ContextHistory:     ss.ContextHistory,
		ContextInitiatives: ss.ContextInitiatives,
	}
}

func normalizeConfig(cfg Config) Config {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	cfg.ContextHistory = strings.TrimSpace(cfg.ContextHistory)
	cfg.ContextInitiatives = strings.TrimSpace(cfg.ContextInitiatives)
	return cfg
}

// validateStored checks a project and canonicalises its category.
func validateStored(p *database.StrategyProject) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("name", "project name is required")
	}
	if p.Impact < MinScore || p.Impact > MaxScore {
		return apperr.Validation("impact", "impact must be between 1 and 10")
	}
	if p.Complexity < MinScore || p.Complexity > MaxScore {
		return apperr.Validation("complexity", "complexity must be between 1 and 10")
	}
	cat, ok := ParseCategory(p.Category)
	if !ok {
		return apperr.Validation("category", "category must be Core, Adjacent or Transformational")
	}
	p.Category = string(cat)
	return nil
}
