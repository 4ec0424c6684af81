package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/portfolio"
	"github.com/TobiSchelling/cubo/internal/session"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Manage the strategy portfolio of the current session",
}

// withPortfolio opens the database and current session and hands them to fn.
func withPortfolio(fn func(svc *portfolio.Service, h session.Handle) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	h, err := currentSession(db)
	if err != nil {
		return err
	}
	return fn(portfolio.NewService(db, logger), h)
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the portfolio and its projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPortfolio(func(svc *portfolio.Service, h session.Handle) error {
			ss, err := svc.Load(h)
			if err != nil {
				return err
			}
			if ss == nil {
				fmt.Println("No portfolio yet. Start one with: cubo portfolio config --name <name>")
				return nil
			}
			printPortfolio(ss)
			return nil
		})
	},
}

var portfolioConfigFlags struct {
	name        string
	history     string
	initiatives string
}

var portfolioConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Set the portfolio name and company context",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPortfolio(func(svc *portfolio.Service, h session.Handle) error {
			cur, err := svc.Load(h)
			if err != nil {
				return err
			}
			var c portfolio.Config
			if cur != nil {
				c = portfolio.Config{
					Name:               cur.PortfolioName,
					ContextHistory:     cur.ContextHistory,
					ContextInitiatives: cur.ContextInitiatives,
				}
			}
			if cmd.Flags().Changed("name") {
				c.Name = portfolioConfigFlags.name
			}
			if cmd.Flags().Changed("history") {
				c.ContextHistory = portfolioConfigFlags.history
			}
			if cmd.Flags().Changed("initiatives") {
				c.ContextInitiatives = portfolioConfigFlags.initiatives
			}

			ss, err := svc.SaveConfig(h, c)
			if err != nil {
				return err
			}
			fmt.Printf("Saved portfolio %q\n", ss.PortfolioName)
			return nil
		})
	},
}

var addFlags portfolio.ProjectInput

var portfolioAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a project to the portfolio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := addFlags
		in.Name = args[0]
		return withPortfolio(func(svc *portfolio.Service, h session.Handle) error {
			ss, err := svc.AddProject(h, in)
			if err != nil {
				return err
			}
			p := ss.Projects[len(ss.Projects)-1]
			fmt.Printf("Added project [%s]: %s\n", p.ID, p.Name)
			return nil
		})
	},
}

var portfolioRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a project from the portfolio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPortfolio(func(svc *portfolio.Service, h session.Handle) error {
			if _, err := svc.RemoveProject(h, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed project [%s]\n", args[0])
			return nil
		})
	},
}

var portfolioToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Toggle whether a project is selected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPortfolio(func(svc *portfolio.Service, h session.Handle) error {
			ss, err := svc.ToggleSelected(h, args[0])
			if err != nil {
				return err
			}
			for _, p := range ss.Projects {
				if p.ID == args[0] {
					state := "deselected"
					if p.Selected {
						state = "selected"
					}
					fmt.Printf("Project [%s] %s: %s\n", p.ID, p.Name, state)
				}
			}
			return nil
		})
	},
}

var suggestAdd bool

var portfolioSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Ask the text generation provider for project suggestions",
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
		svc := portfolio.NewService(db, logger)
		ss, err := svc.Load(h)
		if err != nil {
			return err
		}
		if ss == nil {
			return fmt.Errorf("set the company context first: cubo portfolio config --history ... --initiatives ...")
		}

		fmt.Println("Requesting suggestions...")
		suggestions, err := newAdvisor(db).Suggest(cmd.Context(), h, ss.ContextHistory, ss.ContextInitiatives)
		if err != nil {
			return err
		}

		fmt.Println()
		for i, sg := range suggestions {
			fmt.Printf("  %d. %s (%s) impact %.0f, complexity %.0f\n", i+1, sg.Name, sg.Category, sg.Impact, sg.Complexity)
			if sg.Description != "" {
				fmt.Printf("     %s\n", sg.Description)
			}
			if sg.ExpectedReturn != "" {
				fmt.Printf("     Expected return: %s\n", sg.ExpectedReturn)
			}
		}

		if !suggestAdd {
			fmt.Println("\nRe-run with --add to add them to the portfolio.")
			return nil
		}
		if _, err := svc.AddSuggestions(h, suggestions); err != nil {
			return err
		}
		fmt.Printf("\nAdded %d projects.\n", len(suggestions))
		return nil
	},
}

var chartOutput string

var portfolioChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the impact/complexity chart as SVG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPortfolio(func(svc *portfolio.Service, h session.Handle) error {
			ss, err := svc.Load(h)
			if err != nil {
				return err
			}
			var projects []portfolio.Project
			if ss != nil {
				projects = portfolio.FromStored(ss.Projects)
			}
			svg, err := portfolio.RenderSVG(portfolio.Plot(projects, portfolio.DefaultLayout()))
			if err != nil {
				return err
			}
			return writeOutput(chartOutput, []byte(svg))
		})
	},
}

func init() {
	portfolioConfigCmd.Flags().StringVar(&portfolioConfigFlags.name, "name", "", "Portfolio name")
	portfolioConfigCmd.Flags().StringVar(&portfolioConfigFlags.history, "history", "", "Company history")
	portfolioConfigCmd.Flags().StringVar(&portfolioConfigFlags.initiatives, "initiatives", "", "Current initiatives")

	portfolioAddCmd.Flags().IntVar(&addFlags.Impact, "impact", 5, "Impact score (1-10)")
	portfolioAddCmd.Flags().IntVar(&addFlags.Complexity, "complexity", 5, "Complexity score (1-10)")
	portfolioAddCmd.Flags().StringVar(&addFlags.Category, "category", "Core", "Core, Adjacent or Transformational")
	portfolioAddCmd.Flags().StringVarP(&addFlags.Description, "description", "d", "", "Project description")
	portfolioAddCmd.Flags().StringVar(&addFlags.ExpectedReturn, "expected-return", "", "Expected return")

	portfolioSuggestCmd.Flags().BoolVar(&suggestAdd, "add", false, "Add every suggestion to the portfolio")
	portfolioChartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "Write to file instead of stdout")

	portfolioCmd.AddCommand(portfolioShowCmd)
	portfolioCmd.AddCommand(portfolioConfigCmd)
	portfolioCmd.AddCommand(portfolioAddCmd)
	portfolioCmd.AddCommand(portfolioRemoveCmd)
	portfolioCmd.AddCommand(portfolioToggleCmd)
	portfolioCmd.AddCommand(portfolioSuggestCmd)
	portfolioCmd.AddCommand(portfolioChartCmd)
}

func printPortfolio(ss *database.StrategySession) {
	fmt.Printf("Portfolio: %s\n", ss.PortfolioName)
	if ss.ContextHistory != "" {
		fmt.Printf("History: %s\n", ss.ContextHistory)
	}
	if ss.ContextInitiatives != "" {
		fmt.Printf("Initiatives: %s\n", ss.ContextInitiatives)
	}
	fmt.Println()

	if len(ss.Projects) == 0 {
		fmt.Println("No projects. Add one with: cubo portfolio add <name>")
		return
	}
	for _, p := range ss.Projects {
		icon := " "
		if p.Selected {
			icon = "*"
		}
		fmt.Printf("  [%s] %s %s (%s) impact %d, complexity %d\n",
			p.ID, icon, p.Name, p.Category, p.Impact, p.Complexity)
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
