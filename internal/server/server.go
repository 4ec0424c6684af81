package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/cubo/internal/advisor"
	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/portfolio"
	"github.com/TobiSchelling/cubo/internal/report"
	"github.com/TobiSchelling/cubo/internal/roi"
	"github.com/TobiSchelling/cubo/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// CookieName holds the session id of the browser's current session.
const CookieName = "cubo_session"

// Server is the HTTP server for the web tool and its JSON API.
type Server struct {
	db        *database.DB
	sessions  *session.Manager
	roi       *roi.Service
	portfolio *portfolio.Service
	advisor   *advisor.Advisor
	logger    *zap.Logger
	pages     map[string]*template.Template
	mux       *http.ServeMux
	now       func() time.Time
}

// New creates a new Server. adv may be nil, in which case the text
// generation endpoint always reports a proxy error.
func New(db *database.DB, adv *advisor.Advisor, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adv == nil {
		adv = advisor.New(nil, nil, nil, advisor.Options{}, logger)
	}

	funcMap := template.FuncMap{
		"markdown":    renderMarkdown,
		"currency":    report.Currency,
		"percent":     report.Percent,
		"optMonths":   optMonths,
		"optCurrency": optCurrency,
		"optPercent":  optPercent,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base with its own "content" and "title".
	pageNames := []string{"index.html", "sessions.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:        db,
		sessions:  session.NewManager(db, "", logger),
		roi:       roi.NewService(db, logger),
		portfolio: portfolio.NewService(db, logger),
		advisor:   adv,
		logger:    logger,
		pages:     pages,
		mux:       http.NewServeMux(),
		now:       time.Now,
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.requestLogger(s.mux)
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /sessions", s.handleSessions)

	// Session
	s.mux.HandleFunc("GET /api/session", s.handleGetSession)
	s.mux.HandleFunc("POST /api/session", s.handleLogin)
	s.mux.HandleFunc("DELETE /api/session", s.handleLogout)
	s.mux.HandleFunc("POST /api/session/logout", s.handleLogout)

	// ROI
	s.mux.HandleFunc("POST /api/roi/calculate", s.handleCalculate)
	s.mux.HandleFunc("GET /api/roi/projects", s.handleListROI)
	s.mux.HandleFunc("POST /api/roi/projects", s.handleSaveROI)
	s.mux.HandleFunc("DELETE /api/roi/projects/{id}", s.handleDeleteROI)
	s.mux.HandleFunc("POST /api/roi/projects/{id}/delete", s.handleDeleteROI)

	// Portfolio
	s.mux.HandleFunc("GET /api/portfolio", s.handleGetPortfolio)
	s.mux.HandleFunc("PUT /api/portfolio", s.handlePutPortfolio)
	s.mux.HandleFunc("POST /api/portfolio", s.handlePutPortfolio)
	s.mux.HandleFunc("POST /api/portfolio/projects", s.handleAddProject)
	s.mux.HandleFunc("DELETE /api/portfolio/projects/{id}", s.handleRemoveProject)
	s.mux.HandleFunc("POST /api/portfolio/projects/{id}/delete", s.handleRemoveProject)
	s.mux.HandleFunc("POST /api/portfolio/projects/{id}/toggle", s.handleToggleProject)
	s.mux.HandleFunc("POST /api/portfolio/suggestions", s.handleAddSuggestions)
	s.mux.HandleFunc("GET /api/portfolio/chart.svg", s.handleChart)

	// Text generation proxy
	s.mux.HandleFunc("POST /api/ai-benchmarks", s.handleAdvisor)

	// Reports
	s.mux.HandleFunc("GET /report/roi", s.handleROIReport)
	s.mux.HandleFunc("GET /report/portfolio", s.handlePortfolioReport)
}

// currentHandle resolves the session cookie. A cookie for a session that no
// longer exists counts as no session.
func (s *Server) currentHandle(r *http.Request) (session.Handle, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return session.Handle{}, nil
	}
	h, err := s.sessions.Lookup(c.Value)
	if err != nil && apperr.KindOf(err) != apperr.KindNoActiveSession {
		return session.Handle{}, err
	}
	return h, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("op", "server.render"), zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template failed",
			zap.String("op", "server.render"), zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func optMonths(v *float64) string {
	if v == nil {
		return "n/d"
	}
	return report.Number(*v, 1) + " meses"
}

func optCurrency(v *float64) string {
	if v == nil {
		return "n/d"
	}
	return report.Currency(*v)
}

func optPercent(v *float64) string {
	if v == nil {
		return "n/d"
	}
	return report.Percent(*v)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("op", "server.serve"), zap.String("addr", "http://"+addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down", zap.String("op", "server.serve"))
		return httpSrv.Shutdown(shutdownCtx)
	}
}
