/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"agora/auth"
	"agora/cache"
	"agora/config"
	"agora/db"
	"agora/events"
	"agora/feeds"
	"agora/moderation"
	"agora/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the agora API",
		Description: `Starts the agora HTTP API on the specified or default port.

		Notifications are created in the background and pushed to clients
		connected to the notification stream. When a Redis address is given,
		user profiles and follow counts are cached in Redis.`,
		Flags: append(dbFlags(),
			configFlag(),
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Usage:   "The hostname to listen on",
				EnvVars: []string{"AGORA_HOSTNAME"},
				Value:   "0.0.0.0",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "The port to listen on",
				EnvVars: []string{"AGORA_PORT"},
				Value:   3000,
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "Secret used to sign session tokens",
				EnvVars:  []string{"AGORA_JWT_SECRET"},
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "token-ttl",
				Usage:   "How long session tokens stay valid",
				EnvVars: []string{"AGORA_TOKEN_TTL"},
				Value:   auth.DefaultTokenTTL,
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the profile cache, empty disables caching",
				EnvVars: []string{"AGORA_REDIS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{"AGORA_REDIS_PASSWORD"},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{"AGORA_REDIS_DB"},
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Usage:   "How long cached profiles and counts live",
				EnvVars: []string{"AGORA_CACHE_TTL"},
				Value:   5 * time.Minute,
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Usage:   "Comma separated origins allowed by CORS, empty disables CORS",
				EnvVars: []string{"AGORA_ALLOW_ORIGINS"},
			},
			&cli.DurationFlag{
				Name:    "ads-cache-ttl",
				Usage:   "How long anonymous ad listings are cached in memory, new ads show up for them after this delay. Zero disables caching",
				EnvVars: []string{"AGORA_ADS_CACHE_TTL"},
				Value:   30 * time.Second,
			},
		),
		Action: func(ctx *cli.Context) error {
			log.Info("Starting agora...")

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			var store db.Store = database
			if addr := ctx.String("redis-addr"); addr != "" {
				client := cache.NewClient(addr, ctx.String("redis-password"), ctx.Int("redis-db"))
				defer client.Close()
				store = cache.New(database, client, ctx.Duration("cache-ttl"))
				log.WithField("addr", addr).Info("Caching profiles in Redis")
			}

			runCtx, cancel := context.WithCancel(ctx.Context)
			defer cancel()

			broadcaster := server.NewBroadcaster()
			processor := events.NewProcessor(runCtx, cfg.Events, store, broadcaster)
			processor.Start()

			app := server.Server(&server.ServerConfig{
				Store:        store,
				Feeds:        feeds.New(cfg, store),
				Tokens:       auth.NewTokens(ctx.String("jwt-secret"), ctx.Duration("token-ttl")),
				Moderator:    moderation.New(cfg.Moderation),
				Events:       processor,
				Broadcaster:  broadcaster,
				Ads:          cfg.Ads,
				AllowOrigins: ctx.String("allow-origins"),
				AdsCacheTTL:  ctx.Duration("ads-cache-ttl"),
			})

			go tidyLoop(runCtx, database, cfg.Tidy)

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			var wg sync.WaitGroup
			wg.Add(1)

			go func() {
				defer wg.Done()
				select {
				case <-c:
				case <-runCtx.Done():
				}
				log.Info("Gracefully shutting down...")
				// Ends open notification streams so the server can drain
				broadcaster.Shutdown()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithField("error", err).Error("Error shutting down server")
				}
				cancel()
				processor.Stop()
			}()

			addr := fmt.Sprintf("%s:%d", ctx.String("hostname"), ctx.Int("port"))
			log.WithField("addr", addr).Info("Starting server...")
			if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
				cancel()
				wg.Wait()
				return fmt.Errorf("server stopped: %w", err)
			}

			wg.Wait()
			log.Info("Done!")
			return nil
		},
	}
}
