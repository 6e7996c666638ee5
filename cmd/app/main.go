package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/cortex/internal"
	pkgconfig "github.com/starford/cortex/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	path := cmd.String("config")
	if _, err := os.Stat(path); os.IsNotExist(err) && !cmd.IsSet("config") {
		// No config file at the default location; built-in defaults are
		// enough to run against ./docs/knowledge.
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		return cfg, nil
	}

	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunScan(ctx, cfg)
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunValidate(ctx, cfg)
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunSync(ctx, cfg)
}

func runProbe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunProbe(ctx, cfg)
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, cfg)
}

func main() {
	cmd := &cli.Command{
		Name:  "cortex",
		Usage: "Documentation-as-code knowledge graph with typed links, health reports, and agent tooling",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Flags:  []cli.Flag{configFlag()},
				Action: runServe,
			},
			{
				Name:   "scan",
				Usage:  "Parse all knowledge entries and list them",
				Flags:  []cli.Flag{configFlag()},
				Action: runScan,
			},
			{
				Name:   "validate",
				Usage:  "Rebuild the graph and print the health report; exits non-zero when unhealthy",
				Flags:  []cli.Flag{configFlag()},
				Action: runValidate,
			},
			{
				Name:   "sync",
				Usage:  "Refresh entries with external sources, then rebuild the graph",
				Flags:  []cli.Flag{configFlag()},
				Action: runSync,
			},
			{
				Name:   "probe",
				Usage:  "Check that the canary entry survives a scan",
				Flags:  []cli.Flag{configFlag()},
				Action: runProbe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the knowledge graph to agents over MCP stdio",
				Flags:  []cli.Flag{configFlag()},
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
