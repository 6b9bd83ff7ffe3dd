// Package seeding writes the demo catalog straight into the marketplace
// database, bypassing the service.
package seeding

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dawatapp/dawat/pkg/demo"
	"github.com/dawatapp/dawat/pkg/enums/foodcategory"
	"github.com/dawatapp/dawat/pkg/money"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PostsCollection  = "posts"
	OrdersCollection = "orders"
	defaultRating    = 5.0
	defaultUnit      = "Plates"
)

// PostID derives a stable id so reseeding never duplicates a dish.
func PostID(p demo.Post) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("dawat/demo/"+p.SupplierID+"/"+strings.ToLower(p.Title)))
}

// PostDocuments renders the demo posts as stored documents. Posts are spread
// over the last hour so they all stay inside the browse window.
func PostDocuments(now time.Time) ([]bson.M, error) {
	docs := make([]bson.M, 0, len(demo.Posts))
	for i, p := range demo.Posts {
		price, err := money.Normalize(p.Price)
		if err != nil {
			return nil, fmt.Errorf("demo post %q: %w", p.Title, err)
		}

		category := p.Category
		if c := foodcategory.ByName(p.Category); c != nil {
			category = c.Code()
		}

		createdAt := now.Add(-time.Duration(i*10) * time.Minute)
		docs = append(docs, bson.M{
			"_id":               PostID(p),
			"title":             p.Title,
			"category":          category,
			"chef":              p.Chef,
			"supplier_id":       p.SupplierID,
			"price":             price,
			"quantity":          strconv.Itoa(p.Quantity) + " " + defaultUnit,
			"rating":            defaultRating,
			"images":            p.Images,
			"ingredients":       p.Ingredients,
			"location":          p.Location,
			"supplier_postcode": p.Postcode,
			"is_favorite":       false,
			"created_at":        createdAt,
			"updated_at":        createdAt,
			"version":           1,
		})
	}
	return docs, nil
}

// SeedPosts upserts the demo posts and returns how many were new.
func SeedPosts(ctx context.Context, db *mongo.Database) (int, error) {
	docs, err := PostDocuments(time.Now().UTC())
	if err != nil {
		return 0, err
	}

	collection := db.Collection(PostsCollection)
	inserted := 0
	for _, doc := range docs {
		result, err := collection.UpdateOne(ctx,
			bson.M{"_id": doc["_id"]},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return inserted, fmt.Errorf("cannot create demo post %q: %w", doc["title"], err)
		}
		if result.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}
