package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/extract"
	"github.com/hpungsan/meishi/internal/kvstore"
	"github.com/hpungsan/meishi/internal/mcp"
	"github.com/hpungsan/meishi/internal/state"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"import": true, "export": true, "list": true, "fetch": true,
	"recent": true, "delete": true, "map": true, "serve": true,
	"memo": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
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

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                  _     _     _
   _ __ ___   ___(_)___| |__ (_)
  | '_ ` + "`" + ` _ \ / _ \ / __| '_ \| |
  | | | | | |  __/ \__ \ | | | |
  |_| |_| |_|\___|_|___/_| |_|_|

  Business cards and policies, imported, exported and mapped

  Usage: meishi <command> [options]
         meishi --help

  MCP server mode requires piped input.`)
}

// loadConfig reads config files, .env and the environment.
func loadConfig() (*config.Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not determine working directory: %w", err)
	}
	cfg, err := config.LoadWithRepo(config.DefaultBaseDir(), cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newService returns the Gemini client, or a stand-in that reports every call
// as an external failure when no API key is configured.
func newService(cfg *config.Config, logger *slog.Logger) extract.Service {
	if cfg.GeminiAPIKey == "" {
		return extract.Unconfigured{}
	}
	c, err := extract.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, logger)
	if err != nil {
		logger.Warn("extraction service disabled", "error", err)
		return extract.Unconfigured{}
	}
	return c
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening the store
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fatal("%v", err)
	}

	// stdout belongs to the MCP protocol, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx := context.Background()
	store, err := kvstore.Open(ctx, cfg, config.DefaultBaseDir())
	if err != nil {
		fatal("failed to open store: %v", err)
	}
	defer store.Close()

	st, err := state.Open(ctx, store, state.WithLogger(logger))
	if err != nil {
		fatal("failed to load state: %v", err)
	}
	svc := newService(cfg, logger)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(st, cfg, svc)
		if err := app.Run(os.Args); err != nil {
			store.Close()
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'meishi --help' for usage.\n")
		store.Close()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(st, cfg, svc, Version); err != nil {
		store.Close()
		fatal("%v", err)
	}
}
