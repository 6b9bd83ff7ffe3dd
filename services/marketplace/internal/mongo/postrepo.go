package mongo

import (
	"context"
	"fmt"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/feed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const postsCollection = "posts"

type PostRepo struct {
	collection *mongo.Collection
}

func NewPostRepo(db *mongo.Database) *PostRepo {
	return &PostRepo{
		collection: db.Collection(postsCollection),
	}
}

func (r *PostRepo) Create(ctx context.Context, p *feed.Post) error {
	if p == nil {
		return fmt.Errorf("post is nil")
	}

	p.Version = 1
	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("cannot create post: %w", err)
	}

	return nil
}

func (r *PostRepo) Get(ctx context.Context, id uuid.UUID) (*feed.Post, error) {
	var p feed.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get post: %w", err)
	}
	return &p, nil
}

func (r *PostRepo) List(ctx context.Context, filter feed.PostFilter) ([]*feed.Post, error) {
	query := bson.M{}

	if filter.SupplierID != "" {
		query["supplier_id"] = filter.SupplierID
	}

	if filter.Category != "" {
		query["category"] = filter.Category
	}

	if filter.FavoritesOnly {
		query["is_favorite"] = true
	}

	if !filter.CreatedAfter.IsZero() {
		query["created_at"] = bson.M{"$gte": filter.CreatedAfter}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list posts: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*feed.Post{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode posts: %w", err)
	}

	return result, nil
}

// Save replaces the document only if its version still matches.
func (r *PostRepo) Save(ctx context.Context, p *feed.Post) error {
	if p == nil {
		return fmt.Errorf("post is nil")
	}

	expected := p.Version
	p.Version = expected + 1

	filter := bson.M{"_id": p.ID, "version": expected}
	result, err := r.collection.ReplaceOne(ctx, filter, p)
	if err != nil {
		p.Version = expected
		return fmt.Errorf("cannot update post: %w", err)
	}

	if result.MatchedCount == 0 {
		p.Version = expected
		return r.missOrConflict(ctx, p.ID)
	}

	return nil
}

func (r *PostRepo) missOrConflict(ctx context.Context, id uuid.UUID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot check post: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("post %s: %w", id, errs.ErrNotFound)
	}
	return fmt.Errorf("post %s: %w", id, errs.ErrConflict)
}

func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("cannot delete post: %w", err)
	}
	return nil
}

func (r *PostRepo) DeleteVersion(ctx context.Context, id uuid.UUID, version int) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "version": version})
	if err != nil {
		return fmt.Errorf("cannot delete post: %w", err)
	}
	if result.DeletedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}
