package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kateb7566/system-health-monitor-etl/internal/logging"
	"github.com/kateb7566/system-health-monitor-etl/pkg/healthmon"
)

const appName = "healthmon"

func main() {
	logging.SetDefault(appName, healthmon.Version, os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().Run(ctx, os.Args)
	stop()
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    appName,
		Usage:   "Collect host telemetry, persist it and stream it to live viewers",
		Version: healthmon.Version,
		Commands: []*cli.Command{
			runCmd(),
			validateCmd(),
			fetchCmd(),
			statsCmd(),
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML config file. Without it, defaults and environment variables are used.",
	}
}

func loadConfig(path string) (*healthmon.Config, error) {
	if path == "" {
		return healthmon.LoadConfigFromEnv()
	}
	return healthmon.LoadConfig(path)
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the collector, ingest pipeline and HTTP server",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logging.SetDefault(appName, healthmon.Version, cfg.Log.Level)
			rt, err := healthmon.NewRuntime(cfg, healthmon.WithLogger(logger))
			if err != nil {
				return err
			}
			return rt.Run(ctx)
		},
	}
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Load and validate the configuration without starting anything",
		Flags: []cli.Flag{configFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if _, err := loadConfig(path); err != nil {
				return err
			}
			if path == "" {
				path = "environment"
			}
			fmt.Printf("config %s looks good\n", path)
			return nil
		},
	}
}

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Ask a running server to collect one sample now and print it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "http://localhost:8000",
				Usage: "Base URL of the running server",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "Overall request timeout",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			url := strings.TrimSuffix(cmd.String("url"), "/") + "/fetch"
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
			}
			_, err = os.Stdout.Write(body)
			return err
		},
	}
}

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Poll the Prometheus metrics endpoint and print live counters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "http://localhost:8000/metrics",
				Usage: "Prometheus metrics endpoint",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: 2 * time.Second,
				Usage: "Refresh interval",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return streamStats(ctx, cmd.String("url"), cmd.Duration("interval"))
		},
	}
}
