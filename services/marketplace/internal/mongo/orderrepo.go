package mongo

import (
	"context"
	"fmt"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "orders"

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection(ordersCollection),
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	o.Version = 1
	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &o, nil
}

// Save replaces the document only if its version still matches.
func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	expected := o.Version
	o.Version = expected + 1

	filter := bson.M{"_id": o.ID, "version": expected}
	result, err := r.collection.ReplaceOne(ctx, filter, o)
	if err != nil {
		o.Version = expected
		return fmt.Errorf("cannot update order: %w", err)
	}

	if result.MatchedCount == 0 {
		o.Version = expected
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": o.ID})
		if err != nil {
			return fmt.Errorf("cannot check order: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("order %s: %w", o.ID, errs.ErrNotFound)
		}
		return fmt.Errorf("order %s: %w", o.ID, errs.ErrConflict)
	}

	return nil
}

func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"customer_id": customerID})
}

func (r *OrderRepo) ListBySupplier(ctx context.Context, supplierID string) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"supplier_id": supplierID})
}

func (r *OrderRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"post_id": postID})
}

func (r *OrderRepo) find(ctx context.Context, query bson.M) ([]*order.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*order.Order{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return result, nil
}
