package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayash-Bera/archivist/internal/config"
	"github.com/Ayash-Bera/archivist/internal/database"
	"github.com/Ayash-Bera/archivist/internal/repository"
	"github.com/Ayash-Bera/archivist/internal/seeder"
	"github.com/Ayash-Bera/archivist/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "seed",
		Usage: "Load archive catalogs into the archive database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Normalise and log entries without writing to the database",
			},
			&cli.StringFlag{
				Name:  "timezone",
				Usage: "Location used for catalog dates without a zone",
				Value: "Local",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "yaml",
				Usage:  "Seed archives from a YAML catalog file",
				Action: yamlCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the YAML catalog",
						Required: true,
					},
				},
			},
			{
				Name:   "crawl",
				Usage:  "Seed archives by crawling an HTML catalog",
				Action: crawlCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "URL of the first catalog page",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Maximum number of catalog pages to follow (0 for no limit)",
						Value: 0,
					},
					&cli.DurationFlag{
						Name:  "delay",
						Usage: "Delay between page requests",
						Value: 500 * time.Millisecond,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// seedEnv holds what both subcommands share.
type seedEnv struct {
	logger  *logrus.Logger
	seeder  *seeder.Seeder
	cleanup func()
}

func setup(c *cli.Context) (*seedEnv, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger := utils.InitLogger(level)

	loc, err := time.LoadLocation(c.String("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	processor := seeder.NewCatalogProcessor(loc)

	dryRun := c.Bool("dry-run")
	if dryRun {
		logger.Info("Dry run: no archives will be written")
		return &seedEnv{
			logger:  logger,
			seeder:  seeder.NewSeeder(nil, processor, logger, true),
			cleanup: func() {},
		}, nil
	}

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    level,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	repos := repository.NewRepositoryManager(dbManager.DB)
	return &seedEnv{
		logger: logger,
		seeder: seeder.NewSeeder(repos.Archives, processor, logger, false),
		cleanup: func() {
			if err := dbManager.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close database connections")
			}
		},
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func yamlCommand(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.cleanup()

	path := c.String("file")
	entries, err := seeder.LoadCatalogFile(path)
	if err != nil {
		return err
	}
	env.logger.WithFields(logrus.Fields{"file": path, "entries": len(entries)}).Info("Catalog loaded")

	ctx, cancel := signalContext()
	defer cancel()
	return report(env.seeder.Seed(ctx, entries))
}

func crawlCommand(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	crawler := seeder.NewCrawler(seeder.CrawlerConfig{
		MaxPages: c.Int("max-pages"),
		Delay:    c.Duration("delay"),
	}, env.logger)

	entries, err := crawler.Crawl(ctx, c.String("url"))
	if err != nil {
		return err
	}
	return report(env.seeder.Seed(ctx, entries))
}

func report(r *seeder.Report, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d of %d catalog entries (%d skipped, %d failed)\n", r.Upserted, r.Total, r.Skipped, r.Failed)
	if r.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d archives could not be written", r.Failed), 1)
	}
	return nil
}
