// Package report renders printable HTML reports of a session's ROI projects
// and strategy portfolio. Reports are generated on demand and never stored.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/portfolio"
	"github.com/yuin/goldmark"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrNothingToReport is returned when there are no projects to include.
var ErrNothingToReport = &apperr.Error{
	Kind: apperr.KindValidation,
	Msg:  "nothing to report: add at least one project first",
}

var (
	md      = goldmark.New()
	printer = message.NewPrinter(language.BrazilianPortuguese)
	pages   = mustParse()
)

// TimestampLayout is how generation times are printed.
const TimestampLayout = "02/01/2006 15:04"

// Currency formats v as Brazilian reais, e.g. "R$ 1.234,56".
func Currency(v float64) string {
	return printer.Sprintf("R$ %.2f", v)
}

// Percent formats v with one decimal and a percent sign, e.g. "12,5%".
func Percent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

// Number formats v with locale separators and the given decimals.
func Number(v float64, decimals int) string {
	return printer.Sprintf("%.*f", decimals, v)
}

func mustParse() map[string]*template.Template {
	funcMap := template.FuncMap{
		"currency": Currency,
		"percent":  Percent,
		"markdown": renderMarkdown,
		"optMonths": func(v *float64) string {
			if v == nil {
				return "n/d"
			}
			return Number(*v, 1) + " meses"
		},
		"optCurrency": func(v *float64) string {
			if v == nil {
				return "n/d"
			}
			return Currency(*v)
		},
		"optPercent": func(v *float64) string {
			if v == nil {
				return "n/d"
			}
			return Percent(*v)
		},
		"number": Number,
	}

	base := template.Must(template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html"))
	out := make(map[string]*template.Template)
	for _, name := range []string{"roi.html", "portfolio.html"} {
		clone := template.Must(base.Clone())
		out[name] = template.Must(clone.ParseFS(templateFS, "templates/"+name))
	}
	return out
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// ROISummary aggregates a list of ROI projects.
type ROISummary struct {
	Count               int
	TotalInvestment     float64
	TotalRevenue        float64
	TotalNetProfit      float64
	AverageROI          float64
	AverageRiskAdjusted float64
}

// SummarizeROI computes the report aggregates.
func SummarizeROI(projects []database.ROIProject) ROISummary {
	s := ROISummary{Count: len(projects)}
	if s.Count == 0 {
		return s
	}
	var roi, adj float64
	for _, p := range projects {
		s.TotalInvestment += p.InvestmentAmount
		s.TotalRevenue += p.ExpectedRevenue
		s.TotalNetProfit += p.NetProfit
		roi += p.ROIResult
		adj += p.RiskAdjustedROI
	}
	s.AverageROI = roi / float64(s.Count)
	s.AverageRiskAdjusted = adj / float64(s.Count)
	return s
}

// ROI renders the report for a session's ROI projects.
func ROI(projects []database.ROIProject, now time.Time) ([]byte, error) {
	if len(projects) == 0 {
		return nil, ErrNothingToReport
	}
	return render("roi.html", map[string]any{
		"Title":       "Relatório de ROI",
		"GeneratedAt": now.Format(TimestampLayout),
		"Projects":    projects,
		"Summary":     SummarizeROI(projects),
	})
}

// CategoryCount is the number of projects in one category.
type CategoryCount struct {
	Label string
	Color string
	Count int
}

// PortfolioSummary aggregates a strategy portfolio.
type PortfolioSummary struct {
	Count             int
	Selected          int
	AverageImpact     float64
	AverageComplexity float64
	Categories        []CategoryCount
}

// SummarizePortfolio computes the report aggregates. Projects with an
// unrecognised category are counted under their stored name.
func SummarizePortfolio(projects []database.StrategyProject) PortfolioSummary {
	s := PortfolioSummary{Count: len(projects)}
	counts := make(map[portfolio.Category]int)
	other := make(map[string]int)
	var impact, complexity int
	for _, p := range projects {
		if p.Selected {
			s.Selected++
		}
		impact += p.Impact
		complexity += p.Complexity
		if cat, ok := portfolio.ParseCategory(p.Category); ok {
			counts[cat]++
		} else {
			other[p.Category]++
		}
	}
	if s.Count > 0 {
		s.AverageImpact = float64(impact) / float64(s.Count)
		s.AverageComplexity = float64(complexity) / float64(s.Count)
	}

	for _, cat := range portfolio.Categories {
		s.Categories = append(s.Categories, CategoryCount{Label: cat.Label(), Color: cat.Color(), Count: counts[cat]})
	}
	names := make([]string, 0, len(other))
	for name := range other {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Categories = append(s.Categories, CategoryCount{Label: name, Color: portfolio.UnknownColor, Count: other[name]})
	}
	return s
}

// Portfolio renders the report for a strategy portfolio, chart included.
func Portfolio(ss *database.StrategySession, now time.Time) ([]byte, error) {
	if ss == nil || len(ss.Projects) == 0 {
		return nil, ErrNothingToReport
	}

	chart, err := portfolio.RenderSVG(portfolio.Plot(portfolio.FromStored(ss.Projects), portfolio.DefaultLayout()))
	if err != nil {
		return nil, err
	}

	type row struct {
		database.StrategyProject
		CategoryLabel string
		Color         string
	}
	rows := make([]row, 0, len(ss.Projects))
	for _, p := range ss.Projects {
		r := row{StrategyProject: p, CategoryLabel: p.Category, Color: portfolio.UnknownColor}
		if cat, ok := portfolio.ParseCategory(p.Category); ok {
			r.CategoryLabel, r.Color = cat.Label(), cat.Color()
		}
		rows = append(rows, r)
	}

	return render("portfolio.html", map[string]any{
		"Title":       "Relatório de Portfólio Estratégico",
		"GeneratedAt": now.Format(TimestampLayout),
		"Portfolio":   ss,
		"Projects":    rows,
		"Summary":     SummarizePortfolio(ss.Projects),
		"Chart":       chart,
	})
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "base.html", data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
