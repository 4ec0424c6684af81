package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fptr(f float64) *float64 { return &f }

func TestCurrencyFormatting(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.56, "R$ 1.234,56"},
		{0, "R$ 0,00"},
		{1000000, "R$ 1.000.000,00"},
	}
	for _, tt := range tests {
		if got := Currency(tt.in); got != tt.want {
			t.Errorf("Currency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Percent(12.5); got != "12,5%" {
		t.Errorf("Percent(12.5) = %q", got)
	}
}

func TestROIReportEmpty(t *testing.T) {
	_, err := ROI(nil, testNow)
	if !errors.Is(err, ErrNothingToReport) {
		t.Errorf("expected ErrNothingToReport, got %v", err)
	}
	if !apperr.IsValidation(err) {
		t.Error("expected nothing-to-report to be a validation error")
	}
}

func TestROIReport(t *testing.T) {
	projects := []database.ROIProject{
		{
			ProjectName: "CRM", Description: "Integração **comercial**",
			InvestmentAmount: 10000, Timeframe: 12, ExpectedRevenue: 20000, ExpectedCosts: 5000,
			RiskLevel: "Medium", CalculationModel: "Enterprise",
			ROIResult: 50, NetProfit: 5000, BreakEvenMonths: fptr(8), MonthlyReturn: 416.67,
			RiskAdjustedROI: 42.5, NPV: fptr(4068.85), IRR: fptr(27.5), PaybackPeriod: fptr(24),
		},
		{
			ProjectName: "ERP",
			InvestmentAmount: 20000, Timeframe: 6, ExpectedRevenue: 15000, ExpectedCosts: 1000,
			RiskLevel: "High", CalculationModel: "Simple",
			ROIResult: -30, NetProfit: -6000, MonthlyReturn: -1000, RiskAdjustedROI: -42.86,
		},
	}

	doc, err := ROI(projects, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(doc)

	for _, want := range []string{
		"14/03/2026 09:30",
		"CRM", "ERP",
		"<strong>comercial</strong>",
		"R$ 30.000,00",  // total investment
		"R$ 35.000,00",  // total revenue
		"R$ -1.000,00",  // total net profit
		"10,0%",         // average ROI
		"R$ 4.068,85",   // NPV
		"window.print()",
		"n/d",           // ERP has no break-even
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in report", want)
		}
	}
}

func TestSummarizeROI(t *testing.T) {
	s := SummarizeROI([]database.ROIProject{
		{InvestmentAmount: 100, ROIResult: 10, RiskAdjustedROI: 5},
		{InvestmentAmount: 300, ROIResult: 30, RiskAdjustedROI: 15},
	})
	if s.Count != 2 || s.TotalInvestment != 400 || s.AverageROI != 20 || s.AverageRiskAdjusted != 10 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestPortfolioReportEmpty(t *testing.T) {
	if _, err := Portfolio(nil, testNow); !errors.Is(err, ErrNothingToReport) {
		t.Errorf("expected ErrNothingToReport for nil portfolio, got %v", err)
	}
	ss := &database.StrategySession{PortfolioName: "Vazio", Projects: []database.StrategyProject{}}
	if _, err := Portfolio(ss, testNow); !errors.Is(err, ErrNothingToReport) {
		t.Errorf("expected ErrNothingToReport for empty portfolio, got %v", err)
	}
}

func TestPortfolioReport(t *testing.T) {
	ss := &database.StrategySession{
		PortfolioName:      "Portfólio 2026",
		ContextHistory:     "Empresa de *varejo*",
		ContextInitiatives: "Loja online",
		Projects: []database.StrategyProject{
			{Name: "App", Impact: 8, Complexity: 3, Category: "Core", Selected: true, ExpectedReturn: "Alto"},
			{Name: "Marketplace", Impact: 6, Complexity: 7, Category: "Adjacent"},
			{Name: "Legado", Impact: 1, Complexity: 2, Category: "Outro", Selected: true},
		},
	}

	doc, err := Portfolio(ss, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(doc)

	for _, want := range []string{
		"Portfólio 2026",
		"<em>varejo</em>",
		"<svg",
		"App", "Marketplace", "Legado",
		"Adjacente",
		"Outro",
		"5,0", // average impact
		"4,0", // average complexity
		"window.print()",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in report", want)
		}
	}
	if strings.Count(html, "<circle") != 3 {
		t.Errorf("expected 3 chart markers, got %d", strings.Count(html, "<circle"))
	}
}

func TestSummarizePortfolio(t *testing.T) {
	s := SummarizePortfolio([]database.StrategyProject{
		{Impact: 10, Complexity: 2, Category: "Core", Selected: true},
		{Impact: 4, Complexity: 4, Category: "Transformacional"},
		{Impact: 1, Complexity: 9, Category: "Mystery"},
	})
	if s.Count != 3 || s.Selected != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.AverageImpact != 5 || s.AverageComplexity != 5 {
		t.Errorf("unexpected averages %+v", s)
	}

	byLabel := map[string]int{}
	for _, c := range s.Categories {
		byLabel[c.Label] = c.Count
	}
	if byLabel["Core"] != 1 || byLabel["Transformacional"] != 1 || byLabel["Adjacente"] != 0 || byLabel["Mystery"] != 1 {
		t.Errorf("unexpected category counts %v", byLabel)
	}
}
