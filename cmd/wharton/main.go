package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"wharton/internal/commission"
	"wharton/internal/config"
	"wharton/internal/db"
	"wharton/internal/staking"
)

const usage = `usage: wharton <command> [flags]

commands:
  single      evaluate one bet
  batch       evaluate and allocate a sheet of games (.xlsx or .csv)
  sample      write a sample input workbook
  commission  show or change the commission setting (show|set|platform|reset)
  serve       run the HTTP API
`

// app is what every subcommand needs.
type app struct {
	cfg        *config.Config
	db         *sql.DB
	settings   *db.SettingsStore
	engine     *staking.Engine
	commission *commission.Manager
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "-h" || cmd == "help" || cmd == "--help" {
		fmt.Print(usage)
		return
	}

	// Load configuration.
	configPath := "wharton.toml"
	if p := os.Getenv("WHARTON_CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging.
	level, _ := config.ParseLevel(cfg.General.LogLevel)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	a, err := newApp(cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "single":
		err = a.runSingle(args)
	case "batch":
		err = a.runBatch(ctx, args)
	case "sample":
		err = a.runSample(args)
	case "commission":
		err = a.runCommission(args)
	case "serve":
		err = a.runServe(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error(cmd+" failed", "error", err)
		a.db.Close()
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) (*app, error) {
	database, err := db.Open(cfg.General.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	slog.Debug("database initialized", "path", cfg.General.DBPath)

	settings := db.NewSettingsStore(database)
	cm, err := commission.NewManager(settings,
		cfg.Commission.DefaultPlatform, cfg.Commission.DefaultRate)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		db:         database,
		settings:   settings,
		engine:     staking.NewEngine(cfg.Staking.Params()),
		commission: cm,
	}, nil
}
