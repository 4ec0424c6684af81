package server

import (
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/portfolio"
	"github.com/TobiSchelling/cubo/internal/report"
	"github.com/TobiSchelling/cubo/internal/roi"
	"github.com/TobiSchelling/cubo/internal/session"
)

type indexPage struct {
	Title      string
	Error      string
	Session    session.Handle
	LoggedIn   bool
	Advisor    bool
	Risks      []roi.RiskLevel
	Models     []roi.Model
	Categories []portfolio.Category
	Projects   []database.ROIProject
	ROISummary report.ROISummary
	Portfolio  *database.StrategySession
	Summary    report.PortfolioSummary
	Chart      template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexPage{
		Title:      "Cubo Estratégia",
		Error:      r.URL.Query().Get("error"),
		Advisor:    s.advisor.Configured(),
		Risks:      []roi.RiskLevel{roi.RiskLow, roi.RiskMedium, roi.RiskHigh},
		Models:     []roi.Model{roi.ModelSimple, roi.ModelEnterprise, roi.ModelStrategic},
		Categories: portfolio.Categories,
	}

	h, err := s.currentHandle(r)
	if err != nil {
		s.logger.Error("resolving session failed", zap.String("op", "server.index"), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !h.Valid() {
		s.render(w, "index.html", data)
		return
	}
	data.Session = h
	data.LoggedIn = true

	data.Projects, err = s.roi.List(h)
	if err != nil {
		s.logger.Error("loading ROI projects failed", zap.String("op", "server.index"), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data.ROISummary = report.SummarizeROI(data.Projects)

	data.Portfolio, err = s.portfolio.Load(h)
	if err != nil {
		s.logger.Error("loading portfolio failed", zap.String("op", "server.index"), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if data.Portfolio == nil {
		data.Portfolio = &database.StrategySession{PortfolioName: portfolio.DefaultName}
	}
	data.Summary = report.SummarizePortfolio(data.Portfolio.Projects)

	chart := portfolio.Plot(portfolio.FromStored(data.Portfolio.Projects), portfolio.DefaultLayout())
	if data.Chart, err = portfolio.RenderSVG(chart); err != nil {
		s.logger.Warn("rendering chart failed", zap.String("op", "server.index"), zap.Error(err))
	}

	s.render(w, "index.html", data)
}

type sessionsPage struct {
	Title    string
	Search   string
	Sessions []database.SessionSummary
	Stats    *database.Stats
}

// handleSessions is the administrative listing of every access code.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	sessions, err := s.db.ListSessions(search)
	if err != nil {
		s.logger.Error("listing sessions failed", zap.String("op", "server.sessions"), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		s.logger.Error("loading stats failed", zap.String("op", "server.sessions"), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "sessions.html", sessionsPage{
		Title:    "Sessões",
		Search:   search,
		Sessions: sessions,
		Stats:    stats,
	})
}
