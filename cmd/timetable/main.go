package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/komronbek/timetable/internal/config"
	"github.com/komronbek/timetable/internal/database"
	"github.com/komronbek/timetable/internal/logging"
	"github.com/komronbek/timetable/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	configPath  string
	port        int
	bind        string
	allowSubnet string
	dbDriver    string
	dbDSN       string
	logFile     string
	debug       bool
	verbosity   int
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timetable",
		Short: "Timetable - level timetable lookup server",
		Long:  `Timetable serves a web form for choosing a level and shows the matching rows of the timetable table.`,
		RunE:  run,
	}

	// Shared by every command
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file (or set "+config.ConfigEnvVar+" env var)")
	pf.StringVar(&dbDriver, "db-driver", "", "Database driver: sqlite or postgres (or set DB_DRIVER env var)")
	pf.StringVarP(&dbDSN, "db-dsn", "d", "", "Database DSN or SQLite path (or set DATABASE_URL / DB_PATH env var)")
	pf.StringVar(&logFile, "log-file", "", "Rotating log file path (console only when empty)")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging, including SQL lookups")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	rootCmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "HTTP server port (or set PORT env var)")
	rootCmd.Flags().StringVarP(&bind, "bind", "b", config.DefaultBind, "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
	rootCmd.Flags().StringVarP(&allowSubnet, "allow-subnet", "a", "", "CIDR subnet allowed to connect (e.g., 192.168.1.0/24)")

	rootCmd.AddCommand(newSeedCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("timetable %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	return rootCmd
}

// loadConfig resolves config file, environment and explicitly set flags, then validates
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("bind") {
		cfg.Server.Bind = bind
	}
	if flags.Changed("allow-subnet") {
		cfg.Server.AllowSubnet = allowSubnet
	}
	if flags.Changed("db-driver") {
		cfg.Database.Driver = dbDriver
	}
	if flags.Changed("db-dsn") {
		cfg.Database.DSN = dbDSN
		cfg.Database.Path = ""
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	cfg.Log.Level = logging.LevelForVerbosity(cfg.Log.Level, verbosity, debug)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDatabase connects with a bounded startup timeout
func openDatabase(cfg *config.Config) (*database.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return database.New(ctx, cfg.Database.Options())
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logging.Apply(cfg.Log)

	// Warn if binding to all interfaces without an allow list
	if (cfg.Server.Bind == "" || cfg.Server.Bind == "0.0.0.0" || cfg.Server.Bind == "::") && cfg.Server.AllowSubnet == "" {
		log.Warn().Msg("Server is accessible from all interfaces without subnet restrictions. Consider using --bind or --allow-subnet for security.")
	}

	log.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("allow_subnet", cfg.Server.AllowSubnet).
		Str("db_driver", cfg.Database.Driver).
		Str("log_level", cfg.Log.Level).
		Msg("Starting Timetable")

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	scheduler := database.NewScheduler(db)
	if err := scheduler.Start(cfg.Database.OptimizeSchedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}
	defer scheduler.Stop()

	server, err := web.NewServer(db, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

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
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Timetable stopped")
	return nil
}
