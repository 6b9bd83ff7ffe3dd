package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type orderRow struct {
	ID               string `gorm:"primaryKey"`
	Passcode         string `gorm:"not null"`
	CustomerID       string `gorm:"index;not null"`
	CustomerName     string
	CustomerPostcode string
	SupplierID       string `gorm:"index;not null"`
	SupplierName     string
	PostID           string `gorm:"index;not null"`
	PostTitle        string
	PostImage        string
	Quantity         int
	PricePerItem     string
	TotalPrice       string
	Status           string `gorm:"index;not null"`
	ETAMinutes       *int
	CustomerRating   *int
	CustomerReview   *string
	SupplierRating   *int
	SupplierReview   *string
	CreatedAt        time.Time `gorm:"index"`
	ReadyAt          *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	UpdatedAt        time.Time
	Version          int `gorm:"not null"`
}

func (orderRow) TableName() string {
	return "orders"
}

func toOrderRow(o *order.Order) *orderRow {
	return &orderRow{
		ID:               o.ID.String(),
		Passcode:         o.Passcode,
		CustomerID:       o.CustomerID,
		CustomerName:     o.CustomerName,
		CustomerPostcode: o.CustomerPostcode,
		SupplierID:       o.SupplierID,
		SupplierName:     o.SupplierName,
		PostID:           o.PostID.String(),
		PostTitle:        o.PostTitle,
		PostImage:        o.PostImage,
		Quantity:         o.Quantity,
		PricePerItem:     o.PricePerItem,
		TotalPrice:       o.TotalPrice,
		Status:           o.Status,
		ETAMinutes:       o.ETAMinutes,
		CustomerRating:   o.CustomerRating,
		CustomerReview:   o.CustomerReview,
		SupplierRating:   o.SupplierRating,
		SupplierReview:   o.SupplierReview,
		CreatedAt:        o.CreatedAt,
		ReadyAt:          o.ReadyAt,
		CompletedAt:      o.CompletedAt,
		CancelledAt:      o.CancelledAt,
		UpdatedAt:        o.UpdatedAt,
		Version:          o.Version,
	}
}

func (r *orderRow) toOrder() (*order.Order, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", r.ID, err)
	}
	postID, err := uuid.Parse(r.PostID)
	if err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", r.PostID, err)
	}
	return &order.Order{
		ID:               id,
		Passcode:         r.Passcode,
		CustomerID:       r.CustomerID,
		CustomerName:     r.CustomerName,
		CustomerPostcode: r.CustomerPostcode,
		SupplierID:       r.SupplierID,
		SupplierName:     r.SupplierName,
		PostID:           postID,
		PostTitle:        r.PostTitle,
		PostImage:        r.PostImage,
		Quantity:         r.Quantity,
		PricePerItem:     r.PricePerItem,
		TotalPrice:       r.TotalPrice,
		Status:           r.Status,
		ETAMinutes:       r.ETAMinutes,
		CustomerRating:   r.CustomerRating,
		CustomerReview:   r.CustomerReview,
		SupplierRating:   r.SupplierRating,
		SupplierReview:   r.SupplierReview,
		CreatedAt:        r.CreatedAt,
		ReadyAt:          r.ReadyAt,
		CompletedAt:      r.CompletedAt,
		CancelledAt:      r.CancelledAt,
		UpdatedAt:        r.UpdatedAt,
		Version:          r.Version,
	}, nil
}

type OrderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	o.Version = 1
	if err := r.db.WithContext(ctx).Create(toOrderRow(o)).Error; err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var row orderRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return row.toOrder()
}

// Save writes the row only if its version still matches.
func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	row := toOrderRow(o)
	row.Version = o.Version + 1

	result := r.db.WithContext(ctx).
		Model(&orderRow{}).
		Where("id = ? AND version = ?", row.ID, o.Version).
		Select("*").
		Updates(row)
	if result.Error != nil {
		return fmt.Errorf("cannot update order: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&orderRow{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("cannot check order: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("order %s: %w", o.ID, errs.ErrNotFound)
		}
		return fmt.Errorf("order %s: %w", o.ID, errs.ErrConflict)
	}

	o.Version = row.Version
	return nil
}

func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]*order.Order, error) {
	return r.find(ctx, "customer_id = ?", customerID)
}

func (r *OrderRepo) ListBySupplier(ctx context.Context, supplierID string) ([]*order.Order, error) {
	return r.find(ctx, "supplier_id = ?", supplierID)
}

func (r *OrderRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]*order.Order, error) {
	return r.find(ctx, "post_id = ?", postID.String())
}

func (r *OrderRepo) find(ctx context.Context, where string, arg any) ([]*order.Order, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).
		Where(where, arg).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}

	result := make([]*order.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toOrder()
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}
