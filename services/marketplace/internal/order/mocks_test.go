package order

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dawatapp/dawat/pkg/event"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/google/uuid"
)

// MockPublisher records published order events.
type MockPublisher struct {
	mu          sync.Mutex
	events      []event.OrderEvent
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	var evt event.OrderEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *MockPublisher) Events() []event.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.OrderEvent(nil), m.events...)
}

// MockOrderRepo is an in-memory OrderRepo that honours the version check.
type MockOrderRepo struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*Order
	CreateFunc func(ctx context.Context, order *Order) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Order, error)
	SaveFunc   func(ctx context.Context, order *Order) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, order *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order.Version = 1
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return order.Clone(), nil
}

func (m *MockOrderRepo) Save(ctx context.Context, order *Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if stored.Version != order.Version {
		return errs.ErrConflict
	}
	order.Version++
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *MockOrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]*Order, error) {
	return m.list(func(o *Order) bool { return o.CustomerID == customerID }), nil
}

func (m *MockOrderRepo) ListBySupplier(ctx context.Context, supplierID string) ([]*Order, error) {
	return m.list(func(o *Order) bool { return o.SupplierID == supplierID }), nil
}

func (m *MockOrderRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]*Order, error) {
	return m.list(func(o *Order) bool { return o.PostID == postID }), nil
}

func (m *MockOrderRepo) list(match func(o *Order) bool) []*Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := []*Order{}
	for _, o := range m.orders {
		if match(o) {
			result = append(result, o.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
