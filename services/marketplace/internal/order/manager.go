package order

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/dawatapp/dawat/pkg/enums/orderstatus"
	"github.com/dawatapp/dawat/pkg/event"
	"github.com/dawatapp/dawat/pkg/keylock"
	"github.com/dawatapp/dawat/pkg/money"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/google/uuid"
)

type OrderInput struct {
	CustomerID       string
	CustomerName     string
	CustomerPostcode string
	SupplierID       string
	SupplierName     string
	PostID           uuid.UUID
	PostTitle        string
	PostImage        string
	Quantity         int
	PricePerItem     string
}

type ManagerDeps struct {
	Repo      OrderRepo
	Publisher events.Publisher
	Locks     *keylock.Set
	Passcodes PasscodeGenerator
	Now       func() time.Time
}

// Manager drives orders through submitted, ready, completed and cancelled.
// Mutations of one order are serialized on the order id.
type Manager struct {
	repo      OrderRepo
	publisher events.Publisher
	locks     *keylock.Set
	passcodes PasscodeGenerator
	now       func() time.Time
	logger    apt.Logger
}

func NewManager(deps ManagerDeps, logger apt.Logger) *Manager {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if deps.Locks == nil {
		deps.Locks = keylock.New()
	}
	if deps.Passcodes == nil {
		deps.Passcodes = RandomPasscode
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Manager{
		repo:      deps.Repo,
		publisher: deps.Publisher,
		locks:     deps.Locks,
		passcodes: deps.Passcodes,
		now:       deps.Now,
		logger:    logger,
	}
}

// ValidateOrderInput returns the list of problems found in an order request.
func ValidateOrderInput(in OrderInput) []string {
	var errors []string

	if strings.TrimSpace(in.CustomerID) == "" {
		errors = append(errors, "customer_id is required")
	}
	if strings.TrimSpace(in.SupplierID) == "" {
		errors = append(errors, "supplier_id is required")
	}
	if in.PostID == uuid.Nil {
		errors = append(errors, "post_id is required")
	}
	if in.Quantity < 1 {
		errors = append(errors, "quantity must be at least 1")
	}
	if !money.IsFree(in.PricePerItem) && money.Amount(in.PricePerItem).IsZero() {
		errors = append(errors, "price_per_item must be Free or a positive amount")
	}

	return errors
}

// Create stores a new submitted order with its collection passcode.
// Stock is not checked here.
func (m *Manager) Create(ctx context.Context, in OrderInput) (*Order, error) {
	if problems := ValidateOrderInput(in); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(problems, "; "))
	}

	passcode, err := m.passcodes()
	if err != nil {
		return nil, err
	}

	order := NewOrder()
	order.Passcode = passcode
	order.CustomerID = in.CustomerID
	order.CustomerName = in.CustomerName
	order.CustomerPostcode = in.CustomerPostcode
	order.SupplierID = in.SupplierID
	order.SupplierName = in.SupplierName
	order.PostID = in.PostID
	order.PostTitle = in.PostTitle
	order.PostImage = in.PostImage
	order.Quantity = in.Quantity
	order.PricePerItem = in.PricePerItem
	order.TotalPrice = money.Total(in.PricePerItem, in.Quantity)
	order.CreatedAt = m.now()
	order.UpdatedAt = order.CreatedAt

	if err := m.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("cannot create order: %w", err)
	}

	m.logger.Info("order created", "order_id", order.ID.String(), "post_id", order.PostID.String(), "quantity", order.Quantity)
	m.publish(ctx, event.EventOrderCreated, order, "")

	return order, nil
}

// MarkReady moves a submitted order to ready. etaMinutes is optional.
func (m *Manager) MarkReady(ctx context.Context, id uuid.UUID, etaMinutes *int) (*Order, error) {
	if etaMinutes != nil && *etaMinutes < 0 {
		return nil, fmt.Errorf("%w: eta_minutes cannot be negative", errs.ErrValidation)
	}

	return m.mutate(ctx, id, event.EventOrderReady, func(o *Order) error {
		return o.MarkReady(m.now(), etaMinutes)
	})
}

// VerifyPasscode completes a ready order when entered matches its passcode.
// A mismatch leaves the order ready and can be retried.
func (m *Manager) VerifyPasscode(ctx context.Context, id uuid.UUID, entered string) (*Order, error) {
	return m.mutate(ctx, id, event.EventOrderCompleted, func(o *Order) error {
		if !o.Is(orderstatus.Statuses.Ready) {
			return fmt.Errorf("%w: order %s is %s, not ready for collection", errs.ErrInvalidState, o.ID, o.Status)
		}
		if entered != o.Passcode {
			m.logger.Info("passcode mismatch", "order_id", o.ID.String())
			return fmt.Errorf("order %s: %w", o.ID, errs.ErrInvalidPasscode)
		}
		return o.Complete(m.now())
	})
}

// Cancel withdraws a submitted order. Stock is not restored.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) (*Order, error) {
	return m.mutate(ctx, id, event.EventOrderCancelled, func(o *Order) error {
		return o.Cancel(m.now())
	})
}

// ValidateRating checks a rating request independently of the order state.
func ValidateRating(rating int, review *string, role string) []string {
	var errors []string

	if rating < MinRating || rating > MaxRating {
		errors = append(errors, fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	if review != nil && utf8.RuneCountInString(*review) > MaxReviewLength {
		errors = append(errors, fmt.Sprintf("review must be at most %d characters", MaxReviewLength))
	}
	if role != RoleCustomer && role != RoleSupplier {
		errors = append(errors, "role must be customer or supplier")
	}

	return errors
}

// Rate stores the rating given by role on a completed order.
func (m *Manager) Rate(ctx context.Context, id uuid.UUID, rating int, review *string, role string) (*Order, error) {
	if problems := ValidateRating(rating, review, role); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(problems, "; "))
	}

	return m.mutate(ctx, id, event.EventOrderRated, func(o *Order) error {
		return o.Rate(role, rating, review)
	}, func(evt *event.OrderEvent) {
		evt.RaterRole = role
		evt.Rating = rating
	})
}

// Get returns the order or (nil, nil) when it does not exist.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load order: %w", err)
	}
	return order, nil
}

// ListByCustomer returns the orders a customer placed, newest first.
func (m *Manager) ListByCustomer(ctx context.Context, customerID string) ([]*Order, error) {
	orders, err := m.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("cannot list customer orders: %w", err)
	}
	return orders, nil
}

// ListBySupplier returns the orders a supplier received, newest first.
func (m *Manager) ListBySupplier(ctx context.Context, supplierID string) ([]*Order, error) {
	orders, err := m.repo.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("cannot list supplier orders: %w", err)
	}
	return orders, nil
}

func (m *Manager) ListByPost(ctx context.Context, postID uuid.UUID) ([]*Order, error) {
	orders, err := m.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("cannot list post orders: %w", err)
	}
	return orders, nil
}

// mutate loads the order under its lock, applies change and saves it.
// Nothing is persisted when change fails.
func (m *Manager) mutate(ctx context.Context, id uuid.UUID, eventType string, change func(o *Order) error, decorate ...func(evt *event.OrderEvent)) (*Order, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	order, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", id, errs.ErrNotFound)
	}

	previous := order.Status
	if err := change(order); err != nil {
		return nil, err
	}
	order.UpdatedAt = m.now()

	if err := m.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("cannot save order: %w", err)
	}

	m.logger.Info("order updated", "order_id", order.ID.String(), "status", order.Status, "previous_status", previous)
	m.publish(ctx, eventType, order, previous, decorate...)

	return order, nil
}

func (m *Manager) publish(ctx context.Context, eventType string, order *Order, previous string, decorate ...func(evt *event.OrderEvent)) {
	if m.publisher == nil {
		return
	}

	evt := event.OrderEvent{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		OrderID:    order.ID.String(),
		PostID:     order.PostID.String(),
		CustomerID: order.CustomerID,
		SupplierID: order.SupplierID,
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
		ETAMinutes: order.ETAMinutes,
	}
	if previous != order.Status {
		evt.PreviousStatus = previous
	}
	for _, fn := range decorate {
		fn(&evt)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		m.logger.Error("cannot marshal order event", "event_type", eventType, "error", err)
		return
	}
	if err := m.publisher.Publish(ctx, event.OrdersTopic, payload); err != nil {
		m.logger.Error("cannot publish order event", "event_type", eventType, "error", err)
	}
}
