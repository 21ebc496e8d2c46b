package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/transferlog/internal/auth"
	"github.com/saltyorg/transferlog/internal/config"
	"github.com/saltyorg/transferlog/internal/database"
	"github.com/saltyorg/transferlog/internal/history"
	"github.com/saltyorg/transferlog/internal/logging"
	"github.com/saltyorg/transferlog/internal/maintenance"
	"github.com/saltyorg/transferlog/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultDBPath = "./transferlog.db"

// CLI flags
var (
	port        int
	bind        string
	allowSubnet string
	dbPath      string
	verbosity   int

	requestTimeout time.Duration
	statisticDays  int
	yes            bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "transferlog",
		Short: "Transferlog - media transfer history service",
		Long:  `Transferlog records the outcome of media transfers and serves the history over an HTTP API.`,
	}

	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", defaultDBPath, "SQLite database path (or set DB_PATH env var)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (required, or set PORT env var)")
	serveCmd.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
	serveCmd.Flags().StringVarP(&allowSubnet, "allow-subnet", "a", "", "CIDR subnet allowed to connect (e.g., 192.168.1.0/24)")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "Timeout for a single API request")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print transfers per day",
		RunE:  runStats,
	}
	statsCmd.Flags().IntVar(&statisticDays, "days", history.DefaultStatisticDays, "Number of trailing days")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all transfer history",
		RunE:  runClear,
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	apikeyCmd := &cobra.Command{
		Use:   "apikey",
		Short: "Generate a new API key, replacing the current one",
		RunE:  runAPIKey,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("transferlog %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}

	rootCmd.AddCommand(serveCmd, statsCmd, clearCmd, apikeyCmd, newSettingsCmd(), versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB resolves DB_PATH, opens the database and applies migrations
func openDB() (*database.DB, error) {
	if dbPath == defaultDBPath {
		if envDB := os.Getenv("DB_PATH"); envDB != "" {
			dbPath = envDB
		}
	}

	db, err := database.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	// Check for PORT env var if flag not set
	if port == 0 {
		if envPort := os.Getenv("PORT"); envPort != "" {
			if _, err := fmt.Sscanf(envPort, "%d", &port); err != nil {
				return fmt.Errorf("invalid PORT environment variable %q: %w", envPort, err)
			}
		}
	}
	if port == 0 {
		return fmt.Errorf("--port flag or PORT environment variable is required")
	}

	if bind != "" {
		if ip := net.ParseIP(bind); ip == nil {
			return fmt.Errorf("invalid bind address: %s", bind)
		}
	}

	var allowedNet *net.IPNet
	if allowSubnet != "" {
		_, parsedNet, err := net.ParseCIDR(allowSubnet)
		if err != nil {
			return fmt.Errorf("invalid allow-subnet CIDR: %s", allowSubnet)
		}
		allowedNet = parsedNet
	}

	logging.ApplyConsole(logging.LevelForVerbosity(verbosity))

	db, err := openDB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	// Reapply logging now that rotation settings are readable
	loader := config.NewLoader(db)
	logging.Apply(logging.LevelForVerbosity(verbosity), loader, logging.FilePathForDB(db.Path()))

	timeouts := config.DefaultTimeoutConfig()
	timeouts.Request = requestTimeout
	if !cmd.Flags().Changed("request-timeout") {
		timeouts.Request = loader.Duration(config.KeyRequestTimeout, requestTimeout)
	}
	config.SetGlobalTimeouts(timeouts)

	if (bind == "" || bind == "0.0.0.0" || bind == "::") && allowSubnet == "" {
		log.Warn().Msg("Server is accessible from all interfaces without subnet restrictions. Consider using --bind or --allow-subnet for security.")
	}

	apiKeys := auth.NewAPIKeyService(db)
	if enabled, err := apiKeys.Enabled(); err == nil && !enabled {
		log.Warn().Msg("No API key configured; the history API is unauthenticated. Run 'transferlog apikey' to create one.")
	}

	log.Info().
		Str("version", version).
		Int("port", port).
		Str("bind", bind).
		Str("allow_subnet", allowSubnet).
		Str("database", db.Path()).
		Msg("Starting Transferlog")

	scheduler := maintenance.New(db, maintenance.LoadConfig(loader))
	if err := scheduler.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start maintenance scheduler")
	}
	defer scheduler.Stop()

	server := web.NewServer(history.New(db), apiKeys, web.Options{
		Port:          port,
		Bind:          bind,
		AllowedNet:    allowedNet,
		StatisticDays: loader.Int(config.KeyStatisticDays, history.DefaultStatisticDays),
		Version:       version,
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Server error")
		return err
	}

	log.Info().Msg("Transferlog stopped")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	logging.ApplyConsole(logging.LevelForVerbosity(verbosity))

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := history.New(db).Statistic(cmd.Context(), statisticDays)
	if err != nil {
		return err
	}

	if len(stats) == 0 {
		fmt.Println("No transfers recorded in this period")
		return nil
	}
	for _, s := range stats {
		fmt.Printf("%s  %d\n", s.Date, s.Count)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	logging.ApplyConsole(logging.LevelForVerbosity(verbosity))

	if !yes {
		return fmt.Errorf("refusing to delete all transfer history without --yes")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return history.New(db).Truncate(cmd.Context())
}

func runAPIKey(cmd *cobra.Command, args []string) error {
	logging.ApplyConsole(logging.LevelForVerbosity(verbosity))

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	key, err := auth.NewAPIKeyService(db).Regenerate()
	if err != nil {
		return err
	}

	fmt.Println(key)
	log.Info().Msg("API key regenerated; the previous key no longer works")
	return nil
}
