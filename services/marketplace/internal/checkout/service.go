// Package checkout couples the catalog and the order lifecycle: placing an
// order takes stock out of a post and rating an order feeds the post rating.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/dawatapp/dawat/pkg/enums/orderstatus"
	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/feed"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/google/uuid"
)

type Customer struct {
	ID       string
	Name     string
	Postcode string
}

type PlaceOrderInput struct {
	Customer Customer
	PostID   uuid.UUID
	Quantity int
}

type Service struct {
	catalog *feed.Catalog
	orders  *order.Manager
	logger  apt.Logger
}

func NewService(catalog *feed.Catalog, orders *order.Manager, logger apt.Logger) *Service {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Service{
		catalog: catalog,
		orders:  orders,
		logger:  logger,
	}
}

// PlaceOrder checks stock, creates the order and decrements the post as one
// unit serialized on the post. If the decrement fails the new order is
// cancelled before the error is returned.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*order.Order, error) {
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", errs.ErrValidation)
	}

	var placed *order.Order
	err := s.catalog.Reserve(ctx, in.PostID, in.Quantity, func(post *feed.Post) error {
		o, err := s.orders.Create(ctx, order.OrderInput{
			CustomerID:       in.Customer.ID,
			CustomerName:     in.Customer.Name,
			CustomerPostcode: in.Customer.Postcode,
			SupplierID:       post.SupplierID,
			SupplierName:     post.Chef,
			PostID:           post.ID,
			PostTitle:        post.Title,
			PostImage:        post.CoverImage(),
			Quantity:         in.Quantity,
			PricePerItem:     post.Price,
		})
		if err != nil {
			return err
		}
		placed = o
		return nil
	})

	if err != nil {
		if placed != nil {
			s.compensate(ctx, placed)
		}
		return nil, err
	}

	s.logger.Info("order placed", "order_id", placed.ID.String(), "post_id", in.PostID.String(), "quantity", in.Quantity)
	return placed, nil
}

func (s *Service) compensate(ctx context.Context, o *order.Order) {
	if _, err := s.orders.Cancel(ctx, o.ID); err != nil {
		s.logger.Error("cannot cancel order after failed stock update", "order_id", o.ID.String(), "error", err)
		return
	}
	s.logger.Info("order cancelled after failed stock update", "order_id", o.ID.String())
}

// RateOrder stores a rating and, for customer ratings, refreshes the post
// average from every completed order on that post.
func (s *Service) RateOrder(ctx context.Context, id uuid.UUID, rating int, review *string, role string) (*order.Order, error) {
	o, err := s.orders.Rate(ctx, id, rating, review, role)
	if err != nil {
		return nil, err
	}

	if role != order.RoleCustomer {
		return o, nil
	}

	if err := s.refreshPostRating(ctx, o.PostID); err != nil {
		s.logger.Error("cannot refresh post rating", "post_id", o.PostID.String(), "error", err)
	}

	return o, nil
}

func (s *Service) refreshPostRating(ctx context.Context, postID uuid.UUID) error {
	_, err := s.catalog.RefreshRating(ctx, postID, func(ctx context.Context) (float64, bool, error) {
		orders, err := s.orders.ListByPost(ctx, postID)
		if err != nil {
			return 0, false, err
		}
		avg, ok := AverageCustomerRating(orders)
		return avg, ok, nil
	})
	if errors.Is(err, errs.ErrNotFound) {
		// Sold out posts are gone; the rating stays on the orders.
		return nil
	}
	return err
}

// AverageCustomerRating averages customer ratings of completed orders.
// ok is false when none carries a rating.
func AverageCustomerRating(orders []*order.Order) (avg float64, ok bool) {
	var sum, count int
	for _, o := range orders {
		if !o.Is(orderstatus.Statuses.Completed) || o.CustomerRating == nil {
			continue
		}
		sum += *o.CustomerRating
		count++
	}
	if count == 0 {
		return 0, false
	}
	return feed.RoundRating(float64(sum) / float64(count)), true
}
