package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dayone2md/internal"
	pkgconfig "github.com/starford/dayone2md/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.ReadIfExists(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(cmd *cli.Command, cfg *internal.Config) error {
	if cmd.IsSet("dest") {
		cfg.Vault.Path = cmd.String("dest")
	}
	if cmd.IsSet("mapping") {
		cfg.Mapping.Path = cmd.String("mapping")
	}
	if cmd.IsSet("action") {
		cfg.App.Action = cmd.String("action")
	}
	if cmd.IsSet("dayone-home") {
		cfg.DayOne.Home = cmd.String("dayone-home")
	}
	if cmd.IsSet("time-zone") {
		cfg.App.TimeZone = cmd.String("time-zone")
	}
	if cmd.IsSet("watch") {
		cfg.Watch.Enabled = cmd.Bool("watch")
	}
	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "dayone2md",
		Usage:  "Convert a Day One journal into Markdown notes for an Obsidian vault",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "dest",
				Aliases: []string{"d"},
				Usage:   "Vault directory the notes are written to",
				Sources: cli.EnvVars("DAYONE2MD_DEST"),
			},
			&cli.StringFlag{
				Name:    "mapping",
				Aliases: []string{"m"},
				Usage:   "JSON file mapping CJK titles to slugs",
				Sources: cli.EnvVars("DAYONE2MD_MAPPING"),
			},
			&cli.StringFlag{
				Name:    "action",
				Aliases: []string{"a"},
				Usage:   "execute: export every entry; mapping: write the title mapping template",
				Value:   internal.ActionExecute,
			},
			&cli.StringFlag{
				Name:    "dayone-home",
				Usage:   "Day One data directory holding DayOne.sqlite and DayOnePhotos",
				Sources: cli.EnvVars("DAYONE_HOME"),
			},
			&cli.StringFlag{
				Name:  "time-zone",
				Usage: "IANA time zone for entry clock times",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep running and re-export when the journal changes",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
