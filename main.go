// This is the main entry point of the postboard service.
// It wires configuration, logging, the database pool, services and handlers together
// behind a small command line: `serve` runs the HTTP API and `migrate` manages the schema.
//
// @title Postboard API
// @version 1.0
// @description CRUD API for users and their posts, with soft deletion.
// @contact.name API Support
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/postboard-go/config"
	"github.com/user/postboard-go/db"
)

// application carries what every command needs once the Before hook has run.
type application struct {
	cfg    *config.AppConfig
	logger *slog.Logger
}

func main() {
	a := &application{}
	if err := a.cliApp().Run(os.Args); err != nil {
		slog.Error("postboard failed", "error", err)
		os.Exit(1)
	}
}

func (a *application) cliApp() *cli.App {
	return &cli.App{
		Name:  "postboard",
		Usage: "users and posts API with soft deletion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "file with environment variables to load before reading the configuration",
			},
		},
		Before:         a.load,
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP server",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "migrate", Usage: "apply pending migrations before serving"},
				},
				Action: a.serve,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: a.migrateUp,
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
						},
						Action: a.migrateDown,
					},
					{
						Name:   "version",
						Usage:  "print the current schema version",
						Action: a.migrateVersion,
					},
				},
			},
		},
	}
}

// load reads the env file, then the configuration, and installs the default logger.
// A missing env file is only an error when the flag was given explicitly.
func (a *application) load(cCtx *cli.Context) error {
	envFile := cCtx.String("env-file")
	if err := godotenv.Load(envFile); err != nil {
		if cCtx.IsSet("env-file") || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, cCtx.App.ErrWriter)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(cfg *config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *application) migrator() (*db.Migrator, error) {
	return db.NewMigrator(a.cfg.DB, a.cfg.MigrationsDir, a.logger)
}

func (a *application) migrateUp(cCtx *cli.Context) error {
	mg, err := a.migrator()
	if err != nil {
		return err
	}
	defer mg.Close()
	if err := mg.Up(); err != nil {
		return err
	}
	a.logger.Info("migrations applied")
	return nil
}

func (a *application) migrateDown(cCtx *cli.Context) error {
	mg, err := a.migrator()
	if err != nil {
		return err
	}
	defer mg.Close()
	steps := cCtx.Int("steps")
	if err := mg.Down(steps); err != nil {
		return err
	}
	a.logger.Info("migrations rolled back", "steps", steps)
	return nil
}

func (a *application) migrateVersion(cCtx *cli.Context) error {
	mg, err := a.migrator()
	if err != nil {
		return err
	}
	defer mg.Close()
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "version %d (dirty: %t)\n", version, dirty)
	return nil
}
