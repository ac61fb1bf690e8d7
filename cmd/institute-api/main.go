// main is the entry point of the institute administration backend.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (plus optional .env overrides)
//  2. Initialise the logger
//  3. Load every entity store from its snapshot file
//  4. Wire registries, ledgers, accounts, and the report service
//  5. Run the menu front end until the operator exits (or a signal lands)
//  6. Gracefully shut down: drain in-flight report jobs, then exit
//
// RUNNING:
//
//	go run ./cmd/institute-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/institute-api
package main

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/institutehq/institute-api/internal/auth"
	"github.com/institutehq/institute-api/internal/cli"
	"github.com/institutehq/institute-api/internal/config"
	"github.com/institutehq/institute-api/internal/ledger"
	"github.com/institutehq/institute-api/internal/registry"
	"github.com/institutehq/institute-api/internal/report"
)

func main() {
	// A .env file is optional; when present its values feed the env
	// overrides cleanenv applies on top of the YAML file.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting institute-api",
		slog.String("env", cfg.Env),
		slog.String("data_dir", cfg.DataDir),
	)

	// Each store loads its snapshot and seeds its id generator; a failure
	// here means corrupt-beyond-skipping state and the process must not
	// run half-loaded.
	regs, err := registry.Open(cfg.DataDir, log)
	if err != nil {
		log.Error("failed to load registries", slog.String("error", err.Error()))
		os.Exit(1)
	}

	payments, err := ledger.OpenPaymentLedger(cfg.DataDir, regs.Courses, regs.Students, log)
	if err != nil {
		log.Error("failed to load payment ledger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	attendance, err := ledger.OpenAttendanceLedger(cfg.DataDir, log)
	if err != nil {
		log.Error("failed to load attendance ledger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	accounts, err := auth.Open(cfg.DataDir, log)
	if err != nil {
		log.Error("failed to load user accounts", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reports, err := report.New(cfg.Report, regs, payments, attendance, log)
	if err != nil {
		log.Error("failed to start report service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("stores loaded")

	// The menu loop runs in its own goroutine so the main goroutine can
	// also react to SIGINT/SIGTERM and still shut down cleanly.
	ui := cli.New(accounts, regs, payments, attendance, reports, bufio.NewReader(os.Stdin), os.Stdout)
	done := make(chan struct{})
	go func() {
		ui.Run()
		close(done)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-stop:
		log.Info("shutdown signal received")
	}

	// Drain in-flight report jobs before exiting; the stores need no
	// shutdown step since every mutation is already durable when its call
	// returns.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Report.DrainTimeout)
	defer cancel()
	if err := reports.Close(ctx); err != nil {
		log.Error("report drain failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given
// environment: human-readable text at DEBUG for dev, JSON for staging
// and prod.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
