package main

import (
	"context"
	"flag"
	"time"

	mongoMigration "campbook/internal/migrations/mongo"
	pgMigration "campbook/internal/migrations/postgres"
	"campbook/pkg/config"
)

const JobName = "migrate"

func main() {
	down := flag.Int("down", 0, "roll back this many Postgres migrations instead of migrating up")
	skipMongo := flag.Bool("skip-mongo", false, "do not touch the analytics database")
	flag.Parse()

	cfg := config.Load(JobName)
	defer cfg.GracefulShutdown()

	if *down > 0 {
		if err := pgMigration.Down(cfg.PostgresDSN, *down, cfg.Log); err != nil {
			cfg.Log.Fatal("Postgres rollback failed", "error", err)
		}
		return
	}

	cfg.Log.Info("Starting Postgres migration")
	if err := pgMigration.Up(cfg.PostgresDSN, cfg.Log); err != nil {
		cfg.Log.Fatal("Postgres migration failed", "error", err)
	}

	if *skipMongo {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration")
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log); err != nil {
		cfg.Log.Fatal("Mongo migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
