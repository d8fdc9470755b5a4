package cmd

import (
	"context"
	"fmt"

	"github.com/EBOLABOY/aeroscout/internal/config"
	"github.com/EBOLABOY/aeroscout/internal/server"
	"github.com/urfave/cli/v3"
)

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the search API and orchestration engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store-backend",
				Usage:   "Job store backend (memory, redis, postgres)",
				Sources: cli.EnvVars("AEROSCOUT_STORE_BACKEND"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if v := cmd.String("store-backend"); v != "" {
				cfg.Store.Backend = v
			}
			if v := cmd.String("log-level"); v != "" {
				cfg.Logging.Level = v
			}

			return server.Run(ctx, cfg)
		},
	}
}
