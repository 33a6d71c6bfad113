package main

import (
	"context"

	"visar-backend/app"
	"visar-backend/config"
	"visar-backend/logger"
	"visar-backend/repository"

	"go.uber.org/zap"
)

func main() {
	log := logger.Bootstrap()
	defer log.Sync()

	cfg := config.MustLoad(log)
	ctx := context.Background()

	// Mongo indexes and the vector index are ensured while the container is
	// built; only the Postgres tables need explicit DDL.
	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer c.Close()

	if c.Postgres != nil {
		// Enable pgvector extension
		if _, err := c.Postgres.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			log.Warn("Failed to create pgvector extension", zap.Error(err))
		} else {
			log.Info("✓ pgvector extension enabled")
		}

		for _, stmt := range repository.Schema {
			if _, err := c.Postgres.Exec(ctx, stmt.SQL); err != nil {
				log.Fatal("Failed to create table", zap.String("table", stmt.Name), zap.Error(err))
			}
			log.Info("✓ Table ready", zap.String("table", stmt.Name))
		}
	}

	// The vector table may depend on the extension created above
	if err := c.Index.EnsureIndex(ctx); err != nil {
		log.Fatal("Failed to create vector index", zap.Error(err))
	}
	log.Info("✓ Vector index ready",
		zap.String("backend", cfg.Vector.Backend),
		zap.String("name", cfg.Vector.Name),
		zap.Int("dimension", cfg.Vector.Dimension))

	log.Info("Schema creation complete")
}
