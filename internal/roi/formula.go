// Package roi computes return-on-investment metrics and stores calculated
// projects for a session.
package roi

import (
	"fmt"
	"math"
	"strings"

	"github.com/TobiSchelling/cubo/internal/apperr"
)

// MonthlyDiscountRate is the fixed rate used to discount monthly cash flows for NPV.
const MonthlyDiscountRate = 0.01

// MaxTimeframeMonths is the longest accepted timeframe (50 years).
const MaxTimeframeMonths = 600

// RiskLevel is the perceived risk of a project.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// riskFactors is the canonical haircut table applied to ROI.
var riskFactors = map[RiskLevel]float64{
	RiskLow:    0.95,
	RiskMedium: 0.85,
	RiskHigh:   0.70,
}

// Factor returns the risk multiplier for the level.
func (r RiskLevel) Factor() float64 {
	return riskFactors[r]
}

// ParseRiskLevel accepts English and Portuguese labels, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "baixo":
		return RiskLow, nil
	case "medium", "médio", "medio":
		return RiskMedium, nil
	case "high", "alto":
		return RiskHigh, nil
	}
	return "", apperr.Validation("risk_level", "risk level must be Low, Medium or High")
}

// Model selects which metrics a calculation produces.
type Model string

const (
	ModelSimple     Model = "Simple"
	ModelEnterprise Model = "Enterprise"
	ModelStrategic  Model = "Strategic"
)

// ParseModel accepts English and Portuguese labels, case-insensitively.
// An empty string selects the simple model.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple", "simples":
		return ModelSimple, nil
	case "enterprise", "empresarial":
		return ModelEnterprise, nil
	case "strategic", "estratégico", "estrategico":
		return ModelStrategic, nil
	}
	return "", apperr.Validation("calculation_model", "calculation model must be Simple, Enterprise or Strategic")
}

// discounted reports whether the model includes the discounted-cash-flow metrics.
func (m Model) discounted() bool {
	return m == ModelEnterprise || m == ModelStrategic
}

// Input holds the user-supplied figures for a calculation.
type Input struct {
	ProjectName     string
	Description     string
	Investment      float64
	TimeframeMonths int
	ExpectedRevenue float64
	ExpectedCosts   float64
	EstimatedROI    *float64
	Risk            RiskLevel
	Model           Model
}

// Metrics are the values derived from an Input. Pointer fields are nil when the
// value is undefined for the inputs (for example, break-even on a project that
// never recovers its investment) or not produced by the model.
type Metrics struct {
	ROI             float64  `json:"roi_percent"`
	NetProfit       float64  `json:"net_profit"`
	BreakEvenMonths *float64 `json:"break_even_months"`
	MonthlyReturn   float64  `json:"monthly_return"`
	RiskAdjustedROI float64  `json:"risk_adjusted_roi"`
	NPV             *float64 `json:"npv"`
	IRR             *float64 `json:"irr"`
	PaybackPeriod   *float64 `json:"payback_period"`
}

// Calculate validates the input and derives every metric for its model.
func Calculate(in Input) (*Metrics, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	risk := in.Risk
	if risk == "" {
		risk = RiskMedium
	}
	model := in.Model
	if model == "" {
		model = ModelSimple
	}

	roi, err := ROI(in.Investment, in.ExpectedRevenue, in.ExpectedCosts)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		ROI:             roi,
		NetProfit:       NetProfit(in.Investment, in.ExpectedRevenue, in.ExpectedCosts),
		BreakEvenMonths: BreakEvenMonths(in.Investment, in.ExpectedRevenue, in.ExpectedCosts, in.TimeframeMonths),
		MonthlyReturn:   MonthlyReturn(in.Investment, in.ExpectedRevenue, in.ExpectedCosts, in.TimeframeMonths),
		RiskAdjustedROI: RiskAdjustedROI(roi, risk),
	}

	if model.discounted() {
		npv := NPV(in.Investment, in.ExpectedRevenue, in.ExpectedCosts, in.TimeframeMonths, MonthlyDiscountRate)
		m.NPV = &npv
		m.IRR = IRR(in.Investment, in.ExpectedRevenue, in.ExpectedCosts, in.TimeframeMonths, risk)
		m.PaybackPeriod = PaybackPeriod(in.Investment, m.MonthlyReturn)
	}

	if err := checkFinite(m); err != nil {
		return nil, err
	}
	return m, nil
}

// checkFinite rejects inputs whose magnitudes overflow a derived metric.
func checkFinite(m *Metrics) error {
	values := []float64{m.NetProfit, m.ROI, m.MonthlyReturn, m.RiskAdjustedROI}
	if m.NPV != nil {
		values = append(values, *m.NPV)
	}
	for _, v := range values {
		if !isFinite(v) {
			return apperr.Validation("investment_amount", "figures are too large or too small to calculate")
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateInput(in Input) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"investment_amount", in.Investment},
		{"expected_revenue", in.ExpectedRevenue},
		{"expected_costs", in.ExpectedCosts},
	}
	for _, f := range fields {
		if !isFinite(f.value) {
			return apperr.Validation(f.name, f.name+" must be a finite number")
		}
	}
	if in.Investment <= 0 {
		return apperr.Validation("investment_amount", "investment must be greater than zero")
	}
	if in.TimeframeMonths <= 0 {
		return apperr.Validation("timeframe", "timeframe must be at least one month")
	}
	if in.TimeframeMonths > MaxTimeframeMonths {
		return apperr.Validation("timeframe", fmt.Sprintf("timeframe must be at most %d months", MaxTimeframeMonths))
	}
	if in.EstimatedROI != nil && !isFinite(*in.EstimatedROI) {
		return apperr.Validation("estimated_roi", "estimated_roi must be a finite number")
	}
	if in.Risk != "" {
		if _, ok := riskFactors[in.Risk]; !ok {
			return apperr.Validation("risk_level", "risk level must be Low, Medium or High")
		}
	}
	return nil
}

// NetProfit is revenue minus costs minus the initial investment.
func NetProfit(investment, revenue, costs float64) float64 {
	return revenue - costs - investment
}

// ROI returns net profit as a percentage of investment.
func ROI(investment, revenue, costs float64) (float64, error) {
	if investment <= 0 || math.IsNaN(investment) || math.IsInf(investment, 0) {
		return 0, apperr.Validation("investment_amount", "investment must be greater than zero")
	}
	return NetProfit(investment, revenue, costs) / investment * 100, nil
}

// BreakEvenMonths is the number of months of operating margin needed to recover
// the investment. It is nil when the project has no positive margin.
func BreakEvenMonths(investment, revenue, costs float64, months int) *float64 {
	if months <= 0 {
		return nil
	}
	monthlyMargin := (revenue - costs) / float64(months)
	if monthlyMargin <= 0 {
		return nil
	}
	return finite(investment / monthlyMargin)
}

// MonthlyReturn spreads net profit evenly over the timeframe.
func MonthlyReturn(investment, revenue, costs float64, months int) float64 {
	if months <= 0 {
		return 0
	}
	return NetProfit(investment, revenue, costs) / float64(months)
}

// RiskAdjustedROI applies the risk factor to ROI. Gains are scaled down and
// losses scaled up, so higher risk always yields a lower value.
func RiskAdjustedROI(roi float64, risk RiskLevel) float64 {
	f := risk.Factor()
	if f == 0 {
		return roi
	}
	if roi < 0 {
		return roi / f
	}
	return roi * f
}

// NPV discounts the monthly operating margin at rate per month over the
// timeframe and subtracts the investment.
func NPV(investment, revenue, costs float64, months int, rate float64) float64 {
	if months <= 0 {
		return -investment
	}
	monthlyMargin := (revenue - costs) / float64(months)
	var pv float64
	for i := 1; i <= months; i++ {
		pv += monthlyMargin / math.Pow(1+rate, float64(i))
	}
	return pv - investment
}

// IRR approximates the annualised internal rate of return, in percent, from the
// risk-adjusted margin over the timeframe. It is a closed-form estimate, not a
// root-find, and is nil when the adjusted return is not positive.
func IRR(investment, revenue, costs float64, months int, risk RiskLevel) *float64 {
	if investment <= 0 || months <= 0 {
		return nil
	}
	adjusted := (revenue - costs) * risk.Factor()
	if adjusted <= 0 {
		return nil
	}
	years := float64(months) / 12
	rate := (math.Pow(adjusted/investment, 1/years) - 1) * 100
	return finite(rate)
}

// PaybackPeriod is investment divided by the monthly return, nil when the
// project does not return money.
func PaybackPeriod(investment, monthlyReturn float64) *float64 {
	if monthlyReturn <= 0 {
		return nil
	}
	return finite(investment / monthlyReturn)
}

func finite(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}
