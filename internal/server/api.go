package server

import (
	"net/http"
	"strings"

	"github.com/TobiSchelling/cubo/internal/advisor"
	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/portfolio"
	"github.com/TobiSchelling/cubo/internal/report"
	"github.com/TobiSchelling/cubo/internal/roi"
	"github.com/TobiSchelling/cubo/internal/session"
)

// --- session ---

type sessionResponse struct {
	Session session.Handle `json:"session"`
	Created bool           `json:"created"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{Session: h})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"access_code"`
	}
	if isForm(r) {
		if err := parseForm(r); err != nil {
			s.fail(w, r, err)
			return
		}
		req.AccessCode = r.PostFormValue("access_code")
	} else if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	h, created, err := s.sessions.Open(req.AccessCode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setSessionCookie(w, h.ID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respond(w, r, status, sessionResponse{Session: h, Created: created})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	s.respond(w, r, http.StatusNoContent, nil)
}

// requireSession returns the cookie's session or ErrNoActiveSession.
func (s *Server) requireSession(r *http.Request) (session.Handle, error) {
	h, err := s.currentHandle(r)
	if err != nil {
		return session.Handle{}, err
	}
	if !h.Valid() {
		return session.Handle{}, apperr.ErrNoActiveSession
	}
	return h, nil
}

// --- ROI ---

type roiRequest struct {
	ProjectName        string   `json:"project_name"`
	ProjectDescription string   `json:"project_description"`
	InvestmentAmount   float64  `json:"investment_amount"`
	Timeframe          int      `json:"timeframe"`
	ExpectedRevenue    float64  `json:"expected_revenue"`
	ExpectedCosts      float64  `json:"expected_costs"`
	EstimatedROI       *float64 `json:"estimated_roi"`
	RiskLevel          string   `json:"risk_level"`
	CalculationModel   string   `json:"calculation_model"`
}

func (s *Server) decodeROI(r *http.Request) (roi.Input, error) {
	var req roiRequest
	if isForm(r) {
		if err := parseForm(r); err != nil {
			return roi.Input{}, err
		}
		var err error
		req.ProjectName = r.PostFormValue("project_name")
		req.ProjectDescription = r.PostFormValue("project_description")
		req.RiskLevel = r.PostFormValue("risk_level")
		req.CalculationModel = r.PostFormValue("calculation_model")
		if req.InvestmentAmount, err = formFloat(r, "investment_amount"); err != nil {
			return roi.Input{}, err
		}
		if req.Timeframe, err = formInt(r, "timeframe"); err != nil {
			return roi.Input{}, err
		}
		if req.ExpectedRevenue, err = formFloat(r, "expected_revenue"); err != nil {
			return roi.Input{}, err
		}
		if req.ExpectedCosts, err = formFloat(r, "expected_costs"); err != nil {
			return roi.Input{}, err
		}
		if req.EstimatedROI, err = formOptFloat(r, "estimated_roi"); err != nil {
			return roi.Input{}, err
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return roi.Input{}, err
	}

	risk := roi.RiskMedium
	if strings.TrimSpace(req.RiskLevel) != "" {
		var err error
		if risk, err = roi.ParseRiskLevel(req.RiskLevel); err != nil {
			return roi.Input{}, err
		}
	}
	model, err := roi.ParseModel(req.CalculationModel)
	if err != nil {
		return roi.Input{}, err
	}

	return roi.Input{
		ProjectName:     req.ProjectName,
		Description:     req.ProjectDescription,
		Investment:      req.InvestmentAmount,
		TimeframeMonths: req.Timeframe,
		ExpectedRevenue: req.ExpectedRevenue,
		ExpectedCosts:   req.ExpectedCosts,
		EstimatedROI:    req.EstimatedROI,
		Risk:            risk,
		Model:           model,
	}, nil
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeROI(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.roi.Calculate(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListROI(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	projects, err := s.roi.List(h)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if projects == nil {
		projects = []database.ROIProject{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleSaveROI(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := s.decodeROI(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p, m, err := s.roi.Save(h, in)
	if err != nil {
		if m != nil && !isForm(r) {
			// Storage failed after a successful calculation: keep the numbers.
			body := bodyFor(err)
			s.writeJSON(w, statusFor(err), map[string]any{
				"error": body.Error, "type": body.Type, "metrics": m,
			})
			return
		}
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, map[string]any{"project": p, "metrics": m})
}

func (s *Server) handleDeleteROI(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.roi.Delete(h, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusNoContent, nil)
}

// --- portfolio ---

type portfolioResponse struct {
	Portfolio *database.StrategySession `json:"portfolio"`
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ss, err := s.portfolio.Load(h)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, portfolioResponse{Portfolio: ss})
}

// handlePutPortfolio saves the portfolio header. A JSON body with a
// "projects" array also replaces the full project list.
func (s *Server) handlePutPortfolio(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req struct {
		portfolio.Config
		Projects *[]database.StrategyProject `json:"projects"`
	}
	if isForm(r) {
		if err := parseForm(r); err != nil {
			s.fail(w, r, err)
			return
		}
		req.Name = r.PostFormValue("portfolio_name")
		req.ContextHistory = r.PostFormValue("context_history")
		req.ContextInitiatives = r.PostFormValue("context_initiatives")
	} else if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var ss *database.StrategySession
	if req.Projects != nil {
		ss, err = s.portfolio.Replace(h, req.Config, *req.Projects)
	} else {
		ss, err = s.portfolio.SaveConfig(h, req.Config)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, portfolioResponse{Portfolio: ss})
}

func (s *Server) handleAddProject(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var in portfolio.ProjectInput
	if isForm(r) {
		if err := parseForm(r); err != nil {
			s.fail(w, r, err)
			return
		}
		in.Name = r.PostFormValue("name")
		in.Category = r.PostFormValue("category")
		in.Description = r.PostFormValue("description")
		in.ExpectedReturn = r.PostFormValue("expected_return")
		if in.Impact, err = formInt(r, "impact"); err != nil {
			s.fail(w, r, err)
			return
		}
		if in.Complexity, err = formInt(r, "complexity"); err != nil {
			s.fail(w, r, err)
			return
		}
	} else if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	ss, err := s.portfolio.AddProject(h, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, portfolioResponse{Portfolio: ss})
}

func (s *Server) handleRemoveProject(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ss, err := s.portfolio.RemoveProject(h, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, portfolioResponse{Portfolio: ss})
}

func (s *Server) handleToggleProject(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ss, err := s.portfolio.ToggleSelected(h, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, portfolioResponse{Portfolio: ss})
}

func (s *Server) handleAddSuggestions(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req struct {
		Projects []portfolio.Suggestion `json:"projects"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ss, err := s.portfolio.AddSuggestions(h, req.Projects)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, portfolioResponse{Portfolio: ss})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ss, err := s.portfolio.Load(h)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var projects []portfolio.Project
	if ss != nil {
		projects = portfolio.FromStored(ss.Projects)
	}
	svg, err := portfolio.RenderSVG(portfolio.Plot(projects, portfolio.DefaultLayout()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(svg))
}

// --- text generation proxy ---

// handleAdvisor is the proxy endpoint. A session is optional and only used
// for click counting.
func (s *Server) handleAdvisor(w http.ResponseWriter, r *http.Request) {
	h, err := s.currentHandle(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req advisor.Request
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := s.advisor.Handle(r.Context(), h, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// --- reports ---

func (s *Server) handleROIReport(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.failText(w, err)
		return
	}
	projects, err := s.roi.List(h)
	if err != nil {
		s.failText(w, err)
		return
	}
	doc, err := report.ROI(projects, s.now())
	if err != nil {
		s.failText(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(doc)
}

func (s *Server) handlePortfolioReport(w http.ResponseWriter, r *http.Request) {
	h, err := s.requireSession(r)
	if err != nil {
		s.failText(w, err)
		return
	}
	ss, err := s.portfolio.Load(h)
	if err != nil {
		s.failText(w, err)
		return
	}
	doc, err := report.Portfolio(ss, s.now())
	if err != nil {
		s.failText(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(doc)
}
