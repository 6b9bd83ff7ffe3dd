package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/google/uuid"
)

type OrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*order.Order
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{
		orders: make(map[uuid.UUID]*order.Order),
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}

	o.Version = 1
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[o.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", o.ID, errs.ErrNotFound)
	}
	if stored.Version != o.Version {
		return fmt.Errorf("order %s: %w", o.ID, errs.ErrConflict)
	}

	o.Version++
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]*order.Order, error) {
	return r.list(func(o *order.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *OrderRepo) ListBySupplier(ctx context.Context, supplierID string) ([]*order.Order, error) {
	return r.list(func(o *order.Order) bool { return o.SupplierID == supplierID }), nil
}

func (r *OrderRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]*order.Order, error) {
	return r.list(func(o *order.Order) bool { return o.PostID == postID }), nil
}

func (r *OrderRepo) list(match func(o *order.Order) bool) []*order.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*order.Order, 0)
	for _, o := range r.orders {
		if match(o) {
			result = append(result, o.Clone())
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result
}

// Reset drops every order.
func (r *OrderRepo) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders = make(map[uuid.UUID]*order.Order)
}
