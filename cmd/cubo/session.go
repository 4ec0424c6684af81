package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [code]",
	Short: "Open the session for an access code, creating it if new",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		h, created, err := sessionManager(db).CreateOrLoad(args[0])
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Created new session for %q\n", h.AccessCode)
		} else {
			fmt.Printf("Resumed session for %q\n", h.AccessCode)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the current session (its data is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := sessionManager(db).Clear(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
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
		s, err := db.GetSession(h.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Access code: %s\n", h.AccessCode)
		fmt.Printf("Session ID:  %s\n", h.ID)
		if s != nil {
			fmt.Printf("Benchmark requests:  %d\n", s.BenchmarkClicks)
			fmt.Printf("Suggestion requests: %d\n", s.ProjectSuggestionsClicks)
		}
		return nil
	},
}

var sessionsSearch string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListSessions(sessionsSearch)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Printf("%-24s %6s %10s %10s %11s\n", "ACCESS CODE", "ROI", "PORTFOLIO", "BENCHMARK", "SUGGESTIONS")
		for _, s := range items {
			fmt.Printf("%-24s %6d %10d %10d %11d\n",
				s.AccessCode, s.ROIProjectCount, s.StrategySessionCount,
				s.BenchmarkClicks, s.ProjectSuggestionsClicks)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsSearch, "search", "s", "", "Filter by access code")
}
