package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mongoMigration "hotelbook/internal/migrations/mongo"
	postgresMigration "hotelbook/internal/migrations/postgres"
	"hotelbook/pkg/client"
	"hotelbook/pkg/config"
	"hotelbook/pkg/logger"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const JobName = "hotel-migrate"

var (
	info    = color.New(color.FgCyan).PrintfFunc()
	success = color.New(color.FgGreen, color.Bold).PrintfFunc()
	failure = color.New(color.FgRed, color.Bold).SprintfFunc()
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  JobName,
		Usage: "create the hotel booking schema",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 120 * time.Second,
				Usage: "overall deadline for the migration",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: logger.INFO,
				Usage: "log level",
				EnvVars: []string{
					config.EnvLogLevel,
				},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "postgres",
				Usage: "apply the Postgres schema (tables, btree_gist, overlap exclusion constraint)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dsn",
						Value:   config.DefaultPostgresDSN,
						Usage:   "Postgres connection string",
						EnvVars: []string{config.EnvPostgresDSN},
					},
				},
				Action: migratePostgres,
			},
			{
				Name:  "mongo",
				Usage: "create Mongo collections with validators and indexes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "uri",
						Value:   config.DefaultMongoURI,
						Usage:   "Mongo connection URI",
						EnvVars: []string{config.EnvMongoURI},
					},
					&cli.StringFlag{
						Name:    "database",
						Value:   config.DefaultMongoDatabaseName,
						Usage:   "Mongo database name",
						EnvVars: []string{config.EnvMongoDatabaseName},
					},
				},
				Action: migrateMongo,
			},
			{
				Name:  "schema",
				Usage: "print the Postgres schema without applying it",
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, postgresMigration.Schema())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, failure("Migration failed: %v", err))
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *logger.Logger {
	return logger.New(logger.Config{
		Level:   c.String("log-level"),
		Format:  logger.JSON,
		Output:  os.Stderr,
		Service: JobName,
	})
}

func migratePostgres(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	log := newLogger(c)
	clients := client.NewClient()
	clients.SetPostgres(log, c.String("dsn"), 2, c.Duration("timeout"))
	defer clients.GracefulShutdown(log)

	info("Applying Postgres schema\n")
	if err := postgresMigration.RunMigration(ctx, clients.Postgres, info); err != nil {
		return err
	}
	success("Migration completed successfully.\n")
	return nil
}

func migrateMongo(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	log := newLogger(c)
	clients := client.NewClient()
	clients.SetMongo(log, c.String("uri"), c.Duration("timeout"))
	defer clients.GracefulShutdown(log)

	info("Migrating Mongo database %s\n", c.String("database"))
	if err := mongoMigration.RunMigration(ctx, clients.Mongo.Database(c.String("database")), info); err != nil {
		return err
	}
	success("Migration completed successfully.\n")
	return nil
}
