package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/cubo/internal/portfolio"
	"github.com/TobiSchelling/cubo/internal/report"
	"github.com/TobiSchelling/cubo/internal/roi"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark [description]",
	Short: "Ask for market benchmarks for a project description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		// A session is optional here; it only counts the request.
		h, _ := sessionManager(db).Resume()

		text, err := newAdvisor(db).Benchmark(cmd.Context(), h, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate printable HTML reports",
}

var reportROICmd = &cobra.Command{
	Use:   "roi",
	Short: "Generate the ROI report for the current session",
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
		doc, err := report.ROI(projects, time.Now())
		if err != nil {
			return err
		}
		return writeOutput(reportOutput, doc)
	},
}

var reportPortfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Generate the portfolio report for the current session",
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
		ss, err := portfolio.NewService(db, logger).Load(h)
		if err != nil {
			return err
		}
		doc, err := report.Portfolio(ss, time.Now())
		if err != nil {
			return err
		}
		return writeOutput(reportOutput, doc)
	},
}

func init() {
	reportCmd.PersistentFlags().StringVarP(&reportOutput, "output", "o", "", "Write to file instead of stdout")
	reportCmd.AddCommand(reportROICmd)
	reportCmd.AddCommand(reportPortfolioCmd)
}
