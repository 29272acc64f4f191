package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"ewaste-backend/internal/config"
	"ewaste-backend/internal/database"
	"ewaste-backend/internal/db"
	"ewaste-backend/internal/repositories"
	"ewaste-backend/internal/store/sqlite"
	"ewaste-backend/internal/workflow"
	"ewaste-backend/migrations"
)

type rootOptions struct {
	configPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCommand(opts)

	cmd := &cobra.Command{
		Use:   "ewaste-server",
		Short: "E-waste donation workflow service",
		// bare invocation serves, as the binary always has
		RunE:         serve.RunE,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "path to the YAML config file")
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedAdminCommand(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.LoadFrom(o.configPath)
}

// openStore connects the configured backend. Postgres schemas are brought
// up to date first; the SQLite store applies its schema on open.
func openStore(ctx context.Context, cfg *config.Config) (workflow.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("Connected to database: sqlite %s", cfg.Database.SQLitePath)
		return store, nil

	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Printf("Connected to database: %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

		log.Println("Running database migrations...")
		applied, err := database.NewMigrator(pool, migrations.FS).RunMigrations(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Printf("Migrations complete (%d applied)", applied)
		return repositories.NewStore(pool), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}
