package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/dawatapp/dawat/pkg/demo"
	"go.mongodb.org/mongo-driver/mongo"
)

// ApplyDemoSeeds creates the demo catalog. With a database the seed is tracked
// and applied once; without one it is skipped when demo posts already exist.
func ApplyDemoSeeds(ctx context.Context, catalog *Catalog, db *mongo.Database, logger apt.Logger) error {
	if catalog == nil {
		return errors.New("catalog is required for demo seeding")
	}

	demoSeeds := buildDemoSeeds(catalog)

	if db != nil {
		tracker := seed.NewMongoTracker(db)
		logger.Info("Applying demo post seeds")
		return seed.Apply(ctx, tracker, demoSeeds, demo.SeedApplication)
	}

	existing, err := catalog.List(ctx, ListOptions{SupplierID: demo.Suppliers[0]})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("Demo posts already present, skipping")
		return nil
	}

	for _, s := range demoSeeds {
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", s.ID, err)
		}
	}
	return nil
}

func buildDemoSeeds(catalog *Catalog) []seed.Seed {
	return []seed.Seed{
		{
			ID:          demo.SeedID,
			Description: demo.SeedDescription,
			Run: func(ctx context.Context) error {
				return seedDemoPosts(ctx, catalog)
			},
		},
	}
}

func seedDemoPosts(ctx context.Context, catalog *Catalog) error {
	for _, p := range demo.Posts {
		_, err := catalog.Create(ctx, PostInput{
			Title:            p.Title,
			Category:         p.Category,
			Chef:             p.Chef,
			SupplierID:       p.SupplierID,
			Price:            p.Price,
			Quantity:         p.Quantity,
			Images:           p.Images,
			Ingredients:      p.Ingredients,
			Location:         p.Location,
			SupplierPostcode: p.Postcode,
		})
		if err != nil {
			return fmt.Errorf("create demo post %q: %w", p.Title, err)
		}
	}
	return nil
}

// DemoSeedingFunc applies demo seeds in the background once the service starts.
func DemoSeedingFunc(seedCtx context.Context, catalog *Catalog, db *mongo.Database, logger apt.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		logger.Info("Starting demo post seeding in background")
		go func() {
			if err := ApplyDemoSeeds(seedCtx, catalog, db, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Demo post seeds failed: %v", err)
			} else if err == nil {
				logger.Info("Demo post seeding completed")
			}
		}()
		return nil
	}
}
