/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "agora",
		Usage: "A small social network with for-you, following and community feeds",
		Description: `Agora serves a JSON API for accounts, posts, follows, communities,
		direct messages and notifications, backed by PostgreSQL.

		The feed command is a terminal client that signs in and scrolls
		through a feed page by page.

		Flags can generally be set via environment variables, e.g.:

		--db-host => AGORA_DB_HOST=localhost
		--port => AGORA_PORT=3000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"AGORA_LOG_LEVEL"},
				Value:   "info",
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			seedCmd(),
			feedCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// dbFlags are shared by every command that talks to PostgreSQL
func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-host",
			Usage:   "PostgreSQL host",
			EnvVars: []string{"AGORA_DB_HOST"},
			Value:   "localhost",
		},
		&cli.IntFlag{
			Name:    "db-port",
			Usage:   "PostgreSQL port",
			EnvVars: []string{"AGORA_DB_PORT"},
			Value:   5432,
		},
		&cli.StringFlag{
			Name:    "db-user",
			Usage:   "PostgreSQL user",
			EnvVars: []string{"AGORA_DB_USER"},
			Value:   "agora",
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "PostgreSQL password",
			EnvVars: []string{"AGORA_DB_PASSWORD"},
			Value:   "agora",
		},
		&cli.StringFlag{
			Name:    "db-name",
			Usage:   "PostgreSQL database name",
			EnvVars: []string{"AGORA_DB_NAME"},
			Value:   "agora",
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "agora.toml",
		Usage:   "Path to the TOML configuration file, defaults apply when it is missing",
		EnvVars: []string{"AGORA_CONFIG"},
	}
}
