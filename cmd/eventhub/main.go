package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/eventhub/internal/bootstrap"
	"github.com/yigit/eventhub/internal/pkg/logger"
	"github.com/yigit/eventhub/internal/seed"
	"github.com/yigit/eventhub/internal/server"
)

// @title eventhub API
// @version 1.0
// @description Campus events with targeted notification fan-out
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	app := &cli.App{
		Name:  "eventhub",
		Usage: "campus events with targeted notification fan-out",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"EVENTHUB_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API (applies pending migrations first)",
				Action: serve,
			},
			{
				Name:   "worker",
				Usage:  "run the change consumer and the scheduled jobs",
				Action: runWorker,
			},
			{
				Name:  "sweep",
				Usage: "run one reminder sweep and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "at",
						Usage: "RFC 3339 instant the window starts at (default: now)",
					},
				},
				Action: sweep,
			},
			{
				Name:   "migrate",
				Usage:  "apply pending database migrations and seed the default admin",
				Action: migrate,
			},
			{
				Name:  "token",
				Usage: "mint an access token for a user (development only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
				},
				Action: token,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("eventhub exited with an error")
		stop()
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	deps, err := bootstrap.Open(c.Context, c.String("config"), true)
	if err != nil {
		return err
	}
	defer closeDeps(deps)

	return server.NewServer(deps).Run(c.Context)
}

func runWorker(c *cli.Context) error {
	deps, err := bootstrap.Open(c.Context, c.String("config"), false)
	if err != nil {
		return err
	}
	defer closeDeps(deps)

	scheduler, err := deps.NewScheduler()
	if err != nil {
		return err
	}
	consumer := deps.NewConsumer()

	group, ctx := errgroup.WithContext(c.Context)
	group.Go(func() error { return consumer.Run(ctx) })
	group.Go(func() error { return scheduler.Run(ctx) })
	return group.Wait()
}

func sweep(c *cli.Context) error {
	at := time.Now().UTC()
	if raw := c.String("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid --at value: %w", err)
		}
		at = parsed.UTC()
	}

	deps, err := bootstrap.Open(c.Context, c.String("config"), false)
	if err != nil {
		return err
	}
	defer closeDeps(deps)

	result, err := deps.ReminderSweep.Run(c.Context, at)
	result.Log(deps.Logger, err)
	return err
}

func migrate(c *cli.Context) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(c.String("config"))
	if err != nil {
		return err
	}
	pool, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := bootstrap.RunMigrations(c.Context, pool, lgr); err != nil {
		return err
	}
	deps, err := bootstrap.BuildDependencies(cfg, pool, nil, lgr)
	if err != nil {
		return err
	}
	return seed.CreateDefaultAdmin(c.Context, deps.Repos.UserRepository, cfg, lgr)
}

func token(c *cli.Context) error {
	deps, err := bootstrap.Open(c.Context, c.String("config"), false)
	if err != nil {
		return err
	}
	defer closeDeps(deps)

	user, err := deps.Repos.UserRepository.FindByID(c.Context, c.String("user"))
	if err != nil {
		return err
	}
	signed, expiresIn, err := deps.JWTService.GenerateAccessToken(user)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, signed)
	deps.Logger.Info().
		Str("userID", user.ID).
		Str("role", string(user.Role)).
		Int("expiresIn", expiresIn).
		Msg("Access token issued")
	return nil
}

func closeDeps(deps *bootstrap.Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := deps.Close(ctx); err != nil {
		deps.Logger.Error().Err(err).Msg("Failed to release resources")
	}
}
