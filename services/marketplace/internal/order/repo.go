package order

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepo stores orders. Orders are never deleted.
// Get returns (nil, nil) for unknown ids. Save is a compare-and-swap on
// Version and fails with errs.ErrConflict when another writer got there first.
// List methods return orders newest first.
type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	Save(ctx context.Context, order *Order) error
	ListByCustomer(ctx context.Context, customerID string) ([]*Order, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*Order, error)
	ListByPost(ctx context.Context, postID uuid.UUID) ([]*Order, error)
}
