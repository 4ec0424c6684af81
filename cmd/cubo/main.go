package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/cubo/internal/advisor"
	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/cache"
	"github.com/TobiSchelling/cubo/internal/config"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/llm"
	"github.com/TobiSchelling/cubo/internal/logging"
	"github.com/TobiSchelling/cubo/internal/server"
	"github.com/TobiSchelling/cubo/internal/session"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	logLevel   string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cubo",
	Short:   "ROI calculators and strategy portfolio planning",
	Long:    "Cubo Estratégia calculates project ROI, plans an impact/complexity portfolio, and prints reports for a session identified by an access code.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := logLevel
		if verbose && level == "" {
			level = "debug"
		}
		logger, err = logging.New(cfg.Logging, level)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(roiCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(reportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cubo", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/cubo/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose the text generation provider and API key variables.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Sessions:")
		fmt.Printf("  Total: %d\n", stats.Sessions)
		fmt.Printf("  Benchmark requests: %d\n", stats.BenchmarkClicks)
		fmt.Printf("  Suggestion requests: %d\n", stats.SuggestionClicks)
		fmt.Println("\nProjects:")
		fmt.Printf("  ROI projects: %d\n", stats.ROIProjects)
		fmt.Printf("  Portfolios: %d\n", stats.Portfolios)
		fmt.Printf("  Portfolio projects: %d\n", stats.StrategyProjects)

		fmt.Println("\nText generation:")
		if p := llm.CreateProvider(cfg.Advisor, logger); p != nil {
			fmt.Printf("  Provider: %s (available)\n", cfg.Advisor.Provider)
		} else {
			fmt.Printf("  Provider: %s (not available)\n", cfg.Advisor.Provider)
		}

		if h, err := sessionManager(db).Resume(); err == nil {
			fmt.Printf("\nCurrent session: %s\n", h.AccessCode)
		} else {
			fmt.Println("\nNo current session. Start one with: cubo login <code>")
		}
		return nil
	},
}

// --- serve command ---

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		srv, err := server.New(db, newAdvisor(db), logger)
		if err != nil {
			return err
		}

		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		addr := net.JoinHostPort(host, strconv.Itoa(port))

		fmt.Printf("Starting server at http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DBPath())
}

// sessionManager returns a manager that remembers the current session in the
// data directory between invocations.
func sessionManager(db *database.DB) *session.Manager {
	return session.NewManager(db, filepath.Join(cfg.GetDataDir(), session.StateFile), logger)
}

// currentSession resumes the session saved by login.
func currentSession(db *database.DB) (session.Handle, error) {
	h, err := sessionManager(db).Resume()
	if apperr.KindOf(err) == apperr.KindNoActiveSession {
		return session.Handle{}, fmt.Errorf("%w; run: cubo login <code>", err)
	}
	return h, err
}

func newAdvisor(db *database.DB) *advisor.Advisor {
	return advisor.New(
		llm.CreateProvider(cfg.Advisor, logger),
		cache.New(cfg.Cache.BenchmarkTTL),
		db,
		advisor.Options{MaxTokens: cfg.Advisor.MaxTokens, Timeout: cfg.Advisor.Timeout},
		logger,
	)
}
