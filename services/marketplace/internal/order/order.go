package order

import (
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/dawatapp/dawat/pkg/enums/orderstatus"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleSupplier = "supplier"

	MinRating       = 1
	MaxRating       = 5
	MaxReviewLength = 500
)

type Order struct {
	ID               uuid.UUID  `json:"id" bson:"_id"`
	Passcode         string     `json:"passcode,omitempty" bson:"passcode"`
	CustomerID       string     `json:"customer_id" bson:"customer_id"`
	CustomerName     string     `json:"customer_name" bson:"customer_name"`
	CustomerPostcode string     `json:"customer_postcode,omitempty" bson:"customer_postcode,omitempty"`
	SupplierID       string     `json:"supplier_id" bson:"supplier_id"`
	SupplierName     string     `json:"supplier_name" bson:"supplier_name"`
	PostID           uuid.UUID  `json:"post_id" bson:"post_id"`
	PostTitle        string     `json:"post_title" bson:"post_title"`
	PostImage        string     `json:"post_image,omitempty" bson:"post_image,omitempty"`
	Quantity         int        `json:"quantity" bson:"quantity"`
	PricePerItem     string     `json:"price_per_item" bson:"price_per_item"`
	TotalPrice       string     `json:"total_price" bson:"total_price"`
	Status           string     `json:"status" bson:"status"`
	ETAMinutes       *int       `json:"eta_minutes,omitempty" bson:"eta_minutes,omitempty"`
	CustomerRating   *int       `json:"customer_rating,omitempty" bson:"customer_rating,omitempty"`
	CustomerReview   *string    `json:"customer_review,omitempty" bson:"customer_review,omitempty"`
	SupplierRating   *int       `json:"supplier_rating,omitempty" bson:"supplier_rating,omitempty"`
	SupplierReview   *string    `json:"supplier_review,omitempty" bson:"supplier_review,omitempty"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	ReadyAt          *time.Time `json:"ready_at,omitempty" bson:"ready_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
	Version          int        `json:"-" bson:"version"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func NewOrder() *Order {
	return &Order{
		ID:     apt.GenerateNewID(),
		Status: orderstatus.Statuses.Submitted.Code(),
	}
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

func (o *Order) Is(status orderstatus.Status) bool {
	return o.Status == status.Code()
}

func (o *Order) transition(to orderstatus.Status) error {
	from := orderstatus.ByName(o.Status)
	if from == nil || !orderstatus.CanTransition(*from, to) {
		return fmt.Errorf("%w: order %s is %s, cannot become %s", errs.ErrInvalidState, o.ID, o.Status, to.Code())
	}
	o.Status = to.Code()
	return nil
}

func (o *Order) MarkReady(at time.Time, eta *int) error {
	if err := o.transition(orderstatus.Statuses.Ready); err != nil {
		return err
	}
	o.ReadyAt = &at
	if eta != nil {
		minutes := *eta
		o.ETAMinutes = &minutes
	}
	return nil
}

func (o *Order) Complete(at time.Time) error {
	if err := o.transition(orderstatus.Statuses.Completed); err != nil {
		return err
	}
	o.CompletedAt = &at
	return nil
}

func (o *Order) Cancel(at time.Time) error {
	if err := o.transition(orderstatus.Statuses.Cancelled); err != nil {
		return err
	}
	o.CancelledAt = &at
	return nil
}

// Rate records the rating of one party. Only completed orders can be rated and
// a later rating from the same party replaces the earlier one.
func (o *Order) Rate(role string, rating int, review *string) error {
	if !o.Is(orderstatus.Statuses.Completed) {
		return fmt.Errorf("%w: order %s is %s, only completed orders can be rated", errs.ErrInvalidState, o.ID, o.Status)
	}

	value := rating
	var text *string
	if review != nil {
		r := *review
		text = &r
	}

	switch role {
	case RoleCustomer:
		o.CustomerRating = &value
		o.CustomerReview = text
	case RoleSupplier:
		o.SupplierRating = &value
		o.SupplierReview = text
	default:
		return fmt.Errorf("%w: unknown role %q", errs.ErrValidation, role)
	}
	return nil
}

// PartyOf returns the role userID plays in the order, or "" for strangers.
func (o *Order) PartyOf(userID string) string {
	switch {
	case userID == "":
		return ""
	case userID == o.CustomerID:
		return RoleCustomer
	case userID == o.SupplierID:
		return RoleSupplier
	default:
		return ""
	}
}

// Redacted returns a copy safe to show to anyone but the customer.
func (o *Order) Redacted() *Order {
	c := o.Clone()
	c.Passcode = ""
	return c
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.ETAMinutes = cloneInt(o.ETAMinutes)
	c.CustomerRating = cloneInt(o.CustomerRating)
	c.SupplierRating = cloneInt(o.SupplierRating)
	c.CustomerReview = cloneString(o.CustomerReview)
	c.SupplierReview = cloneString(o.SupplierReview)
	c.ReadyAt = cloneTime(o.ReadyAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	c.CancelledAt = cloneTime(o.CancelledAt)
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
