package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/dawatapp/dawat/cmd/utils/internal/seeding"
	"github.com/dawatapp/dawat/pkg/demo"
	"go.mongodb.org/mongo-driver/bson"
)

// SeedDemo writes the demo catalog once, tracked in the _seeds collection.
func SeedDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo seeding process...")

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	db := client.Database(databaseName(config))
	seeds := db.Collection(seedsCollection)

	count, err := seeds.CountDocuments(ctx, bson.M{"_id": demo.SeedID})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}
	if count > 0 {
		logger.Info("Demo seeds already applied, skipping", "seed", demo.SeedID)
		return nil
	}

	inserted, err := seeding.SeedPosts(ctx, db)
	if err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}
	logger.Info("Demo posts written", "inserted", inserted, "total", len(demo.Posts))

	_, err = seeds.InsertOne(ctx, bson.M{
		"_id":         demo.SeedID,
		"application": demo.SeedApplication,
		"description": demo.SeedDescription,
		"applied_at":  time.Now().UTC(),
	})
	if err != nil {
		logger.Infof("Failed to mark seed as applied: %v", err)
	}

	return nil
}
