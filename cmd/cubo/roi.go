package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/report"
	"github.com/TobiSchelling/cubo/internal/roi"
)

var roiCmd = &cobra.Command{
	Use:   "roi",
	Short: "Calculate and manage ROI projects",
}

var roiFlags struct {
	name         string
	description  string
	investment   float64
	timeframe    int
	revenue      float64
	costs        float64
	estimatedROI float64
	risk         string
	model        string
}

func addROIFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&roiFlags.name, "name", "n", "", "Project name")
	f.StringVarP(&roiFlags.description, "description", "d", "", "Project description")
	f.Float64VarP(&roiFlags.investment, "investment", "i", 0, "Initial investment (R$)")
	f.IntVarP(&roiFlags.timeframe, "timeframe", "t", 12, "Timeframe in months")
	f.Float64VarP(&roiFlags.revenue, "revenue", "r", 0, "Expected revenue over the timeframe (R$)")
	f.Float64Var(&roiFlags.costs, "costs", 0, "Expected operating costs over the timeframe (R$)")
	f.Float64Var(&roiFlags.estimatedROI, "estimated-roi", 0, "Your own ROI estimate (%), stored for comparison")
	f.StringVar(&roiFlags.risk, "risk", "Medium", "Risk level: Low, Medium, High")
	f.StringVarP(&roiFlags.model, "model", "m", "Simple", "Calculation model: Simple, Enterprise, Strategic")
}

func roiInput(cmd *cobra.Command) (roi.Input, error) {
	risk, err := roi.ParseRiskLevel(roiFlags.risk)
	if err != nil {
		return roi.Input{}, err
	}
	model, err := roi.ParseModel(roiFlags.model)
	if err != nil {
		return roi.Input{}, err
	}

	in := roi.Input{
		ProjectName:     roiFlags.name,
		Description:     roiFlags.description,
		Investment:      roiFlags.investment,
		TimeframeMonths: roiFlags.timeframe,
		ExpectedRevenue: roiFlags.revenue,
		ExpectedCosts:   roiFlags.costs,
		Risk:            risk,
		Model:           model,
	}
	if cmd.Flags().Changed("estimated-roi") {
		v := roiFlags.estimatedROI
		in.EstimatedROI = &v
	}
	return in, nil
}

var roiCalcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate ROI metrics without saving",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := roiInput(cmd)
		if err != nil {
			return err
		}
		m, err := roi.Calculate(in)
		if err != nil {
			return err
		}
		printMetrics(m)
		return nil
	},
}

var roiSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Calculate ROI metrics and save the project to the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := roiInput(cmd)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		h, err := currentSession(db)
		if err != nil {
			return err
		}

		p, m, err := roi.NewService(db, logger).Save(h, in)
		if m != nil {
			printMetrics(m)
		}
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved project [%s]: %s\n", p.ID, p.ProjectName)
		return nil
	},
}

var roiListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the current session's ROI projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		h, err := currentSession(db)
		if err != nil {
			return err
		}
		projects, err := roi.NewService(db, logger).List(h)
		if err != nil {
			return err
		}

		if len(projects) == 0 {
			fmt.Println("No ROI projects yet. Add one with: cubo roi save")
			return nil
		}

		fmt.Println("ROI Projects:")
		fmt.Println()
		for _, p := range projects {
			printProject(p)
		}

		s := report.SummarizeROI(projects)
		fmt.Printf("Total investment: %s | Average ROI: %s\n",
			report.Currency(s.TotalInvestment), report.Percent(s.AverageROI))
		return nil
	},
}

var roiDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an ROI project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		h, err := currentSession(db)
		if err != nil {
			return err
		}
		if err := roi.NewService(db, logger).Delete(h, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted project [%s]\n", args[0])
		return nil
	},
}

func init() {
	addROIFlags(roiCalcCmd)
	addROIFlags(roiSaveCmd)

	roiCmd.AddCommand(roiCalcCmd)
	roiCmd.AddCommand(roiSaveCmd)
	roiCmd.AddCommand(roiListCmd)
	roiCmd.AddCommand(roiDeleteCmd)
}

func printMetrics(m *roi.Metrics) {
	fmt.Printf("  ROI:               %s\n", report.Percent(m.ROI))
	fmt.Printf("  Risk-adjusted ROI: %s\n", report.Percent(m.RiskAdjustedROI))
	fmt.Printf("  Net profit:        %s\n", report.Currency(m.NetProfit))
	fmt.Printf("  Monthly return:    %s\n", report.Currency(m.MonthlyReturn))
	fmt.Printf("  Break-even:        %s\n", optMonths(m.BreakEvenMonths))
	if m.NPV != nil {
		fmt.Printf("  NPV:               %s\n", report.Currency(*m.NPV))
		fmt.Printf("  IRR:               %s\n", optPercent(m.IRR))
		fmt.Printf("  Payback:           %s\n", optMonths(m.PaybackPeriod))
	}
}

func printProject(p database.ROIProject) {
	fmt.Printf("  [%s] %s (%s, %s)\n", p.ID, p.ProjectName, p.RiskLevel, p.CalculationModel)
	fmt.Printf("        Investment %s over %d months | ROI %s | Net %s\n",
		report.Currency(p.InvestmentAmount), p.Timeframe, report.Percent(p.ROIResult), report.Currency(p.NetProfit))
	if p.Description != "" {
		desc := p.Description
		if len(desc) > 60 {
			desc = desc[:60] + "..."
		}
		fmt.Printf("        %s\n", desc)
	}
	fmt.Println()
}

func optMonths(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return report.Number(*v, 1) + " months"
}

func optPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return report.Percent(*v)
}
