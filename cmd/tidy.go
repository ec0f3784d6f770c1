/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"time"

	"agora/config"
	"agora/db"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing read notifications that are old.

		The age limit comes from the notifications_days setting of the
		configuration file unless --days is given.`,
		Flags: append(dbFlags(),
			configFlag(),
			&cli.IntFlag{
				Name:    "days",
				Usage:   "Remove read notifications older than this many days",
				EnvVars: []string{"AGORA_TIDY_DAYS"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}
			days := cfg.Tidy.NotificationsDays
			if ctx.IsSet("days") {
				days = ctx.Int("days")
			}

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			_, err = tidy(ctx.Context, database, days)
			return err
		},
	}
}

func tidy(ctx context.Context, database *db.DB, days int) (int64, error) {
	removed, err := database.Tidy(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		log.WithField("error", err).Error("Error tidying database")
		return 0, err
	}
	log.WithFields(log.Fields{
		"removed": removed,
		"days":    days,
	}).Info("Tidied notifications")
	return removed, nil
}

// tidyLoop tidies the database every interval until ctx is done
func tidyLoop(ctx context.Context, database *db.DB, cfg config.TomlTidy) {
	if cfg.IntervalMinutes <= 0 {
		return
	}

	ticker := time.NewTicker(time.Duration(cfg.IntervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = tidy(ctx, database, cfg.NotificationsDays)
		}
	}
}
