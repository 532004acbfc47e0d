package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nas/track-learning/internal/config"
	"github.com/nas/track-learning/internal/db"
	"github.com/nas/track-learning/internal/llm"
	"github.com/nas/track-learning/internal/mcp"
	"github.com/nas/track-learning/internal/metrics"
	"github.com/nas/track-learning/internal/ops"
	"github.com/nas/track-learning/internal/parse"
	"github.com/nas/track-learning/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"add": true, "create": true, "edit": true, "update": true, "archive": true,
	"get": true, "list": true, "search": true, "filter": true,
	"export": true, "import": true, "serve": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short usage note when run interactively without args.
func printBanner() {
	fmt.Println(`
  tracker: a learning log you talk to

  Usage: tracker <command> [options]
         tracker --help

  MCP server mode requires piped input.`)
}

// appEnv holds everything a command needs. It is nil for help and version.
type appEnv struct {
	store      store.Store
	parser     ops.Parser
	cfg        *config.Config
	exportsDir string
	logger     *slog.Logger
	metrics    *metrics.Collector
	registry   *prometheus.Registry
}

// setup resolves the base directory, loads config, opens the store and
// builds the parser. The returned cleanup closes the store and the log file.
func setup(ctx context.Context) (*appEnv, func(), error) {
	baseDir, err := config.BaseDir(os.Getenv)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureDirs(baseDir); err != nil {
		return nil, nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("could not determine working directory: %w", err)
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd, os.Getenv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog := config.SetupLogger(filepath.Join(baseDir, "tracker.log"), config.ParseLogLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", slog.Any("tools", unknown))
	}

	st, err := store.Open(ctx, cfg, baseDir)
	if err != nil {
		_ = closeLog()
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage, err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	gateway := llm.NewGateway(
		llm.WithLogger(logger),
		llm.WithObserver(collector),
	)
	parser := parse.New(gateway,
		parse.WithLogger(logger),
		parse.WithObserver(collector),
	)

	env := &appEnv{
		store:      st,
		parser:     parser,
		cfg:        cfg,
		exportsDir: filepath.Join(baseDir, "exports"),
		logger:     logger,
		metrics:    collector,
		registry:   registry,
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
		_ = closeLog()
	}
	return env, cleanup, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening the store
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tracker --help' for usage.\n")
		os.Exit(1)
	}

	env, cleanup, err := setup(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if isCLIMode() {
		err = newCLIApp(env).Run(os.Args)
	} else {
		err = mcp.Run(env.store, env.parser, env.cfg, env.exportsDir, Version)
	}
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
