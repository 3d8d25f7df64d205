// Package main is the entry point for the EmotionAI backend smoke test. It
// takes an optional base URL as its only argument, runs the probe sequence
// once against that backend, and prints a colored pass/fail report. The exit
// status is zero whenever the run completes, whatever the probe outcomes. A
// base URL the client cannot reach, including one that is not a URL at all,
// shows up as a failed health check. Only a configuration error such as an
// unknown color mode exits non-zero.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/emotionai/backend-smoke/internal/client"
	"github.com/emotionai/backend-smoke/internal/config"
	"github.com/emotionai/backend-smoke/internal/report"
	"github.com/emotionai/backend-smoke/internal/smoke"
	"github.com/emotionai/backend-smoke/internal/telemetry"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run(args []string, stdout io.Writer) error {
	var baseURL string
	if len(args) > 0 {
		if args[0] == "version" {
			fmt.Fprintf(stdout, "emotionai-smoke version %s\n", config.Version)
			return nil
		}
		baseURL = args[0]
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath, baseURL)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	telemetry.SetupLogger(os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
	slog.Debug("configuration loaded", "base_url", cfg.Target.BaseURL, "username", cfg.Credentials.Username)
	if err := cfg.Target.Validate(); err != nil {
		slog.Warn("base url is not usable; requests will fail", "error", err)
	}

	c := client.New(cfg.Target.BaseURL,
		client.WithTimeout(cfg.HTTP.Timeout),
		client.WithUserAgent(cfg.HTTP.UserAgent),
	)

	runner := smoke.NewRunner(c, report.New(stdout, cfg.Output.Color), smoke.Credentials{
		Username: cfg.Credentials.Username,
		Password: cfg.Credentials.Password,
		Email:    cfg.Credentials.Email(),
	}, smoke.WithLogger(slog.Default()))

	summary, err := runner.Run(context.Background())
	if err != nil {
		// Probe lines are already printed; only the totals are missing.
		slog.Error("failed to summarise run", "error", err)
		return nil
	}
	slog.Info("smoke run finished",
		"passed", summary.Passed,
		"failed", summary.Failed,
		"aborted", summary.Aborted,
		"authenticated", summary.Authenticated,
	)
	return nil
}
