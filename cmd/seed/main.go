package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	automigrate := flag.Bool("automigrate", false, "create tables from the models before seeding")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = db.DriverSQLite
	}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if *automigrate || dbClient.Driver() == db.DriverSQLite {
		requireResource(ctx, logg, "schema", migrate.AutoMigrateModels(ctx, dbClient))
	}

	result, err := newSeeder(dbClient.DB(), cfg, logg).Run(ctx)
	if result != nil {
		if result.AdminPassword != "" {
			fmt.Printf("admin %s created with temporary password: %s\n", cfg.Seed.AdminEmail, result.AdminPassword)
		}
		fmt.Printf("products inserted: %d\n", result.ProductsInserted)
	}
	if err != nil {
		logg.Error(ctx, "seed finished with errors", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
