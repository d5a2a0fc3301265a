// Command safeboy runs the occupational-safety assistant API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/safeboy/safeboy/internal/infra/config"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("safeboy", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	envFile := fs.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")

	if err := fs.Parse(args); err != nil {
		printHelp(out)
		return 2
	}
	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	command := fs.Arg(0)
	if command != "serve" && command != "migrate" {
		printHelp(out)
		return 2
	}

	// A missing .env is normal in containers; everything can come from the environment.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "load %s: %v\n", *envFile, err) //nolint:errcheck
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	if _, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		fmt.Fprintf(out, "logger: %v\n", err) //nolint:errcheck
		return 1
	}

	switch command {
	case "migrate":
		err = migrate(ctx, cfg)
	default:
		err = serve(ctx, cfg)
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("command", command).Msg("command failed")
		return 1
	}
	return 0
}

func printHelp(out io.Writer) {
	helpText := `Safeboy - occupational safety assistant API

Usage:
  safeboy [options] <command>

Commands:
  serve        Apply migrations and start the HTTP server
  migrate      Apply pending database migrations and exit

Options:
  --env-file   Dotenv file to load (default .env)
  --version    Show version information
  --help       Show this help message`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
