package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/dawatapp/dawat/cmd/utils/internal/seeding"
	"github.com/dawatapp/dawat/pkg/demo"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearDemo removes every post and order of the demo suppliers and forgets
// the seed so it can be applied again.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	db := client.Database(databaseName(config))
	bySupplier := bson.M{"supplier_id": bson.M{"$in": demo.Suppliers}}

	posts, err := db.Collection(seeding.PostsCollection).DeleteMany(ctx, bySupplier)
	if err != nil {
		return fmt.Errorf("delete demo posts: %w", err)
	}
	logger.Info("Deleted demo posts", "count", posts.DeletedCount)

	orders, err := db.Collection(seeding.OrdersCollection).DeleteMany(ctx, bySupplier)
	if err != nil {
		return fmt.Errorf("delete demo orders: %w", err)
	}
	logger.Info("Deleted demo orders", "count", orders.DeletedCount)

	tracker, err := db.Collection(seedsCollection).DeleteOne(ctx, bson.M{"_id": demo.SeedID})
	if err != nil {
		return fmt.Errorf("delete seed tracker: %w", err)
	}
	logger.Info("Cleared seed tracker", "deleted", tracker.DeletedCount)

	return nil
}
