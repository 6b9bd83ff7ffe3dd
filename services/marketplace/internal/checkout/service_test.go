package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/feed"
	"github.com/dawatapp/dawat/services/marketplace/internal/memory"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/google/uuid"
)

var testNow = time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)

type fixture struct {
	posts   *memory.PostRepo
	orders  *memory.OrderRepo
	catalog *feed.Catalog
	manager *order.Manager
	service *Service
}

func newFixture(postRepo feed.PostRepo) *fixture {
	f := &fixture{
		posts:  memory.NewPostRepo(),
		orders: memory.NewOrderRepo(),
	}
	if postRepo == nil {
		postRepo = f.posts
	}

	now := func() time.Time { return testNow }
	f.catalog = feed.NewCatalog(feed.CatalogDeps{Repo: postRepo, Now: now}, nil)
	f.manager = order.NewManager(order.ManagerDeps{
		Repo:      f.orders,
		Passcodes: func() (string, error) { return "4821", nil },
		Now:       now,
	}, nil)
	f.service = NewService(f.catalog, f.manager, nil)
	return f
}

func (f *fixture) createPost(t *testing.T, quantity int, price string) *feed.Post {
	t.Helper()
	post, err := f.catalog.Create(context.Background(), feed.PostInput{
		Title:      "Chicken Biryani",
		Category:   "chicken",
		Chef:       "Amira",
		SupplierID: "supplier-1",
		Price:      price,
		Quantity:   quantity,
		Images:     []string{"biryani.jpg"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return post
}

func customer(id string) Customer {
	return Customer{ID: id, Name: "Bilal", Postcode: "E1 6AN"}
}

// failingSaveRepo refuses every post update.
type failingSaveRepo struct {
	*memory.PostRepo
}

func (r failingSaveRepo) Save(ctx context.Context, post *feed.Post) error {
	return errors.New("disk full")
}

func TestPlaceOrderDecrementsStock(t *testing.T) {
	f := newFixture(nil)
	post := f.createPost(t, 10, "£2.50")

	o, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		Customer: customer("customer-1"),
		PostID:   post.ID,
		Quantity: 4,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	if o.Status != "submitted" || o.Passcode != "4821" {
		t.Errorf("order = %q/%q, want submitted with passcode", o.Status, o.Passcode)
	}
	if o.TotalPrice != "£10.00" {
		t.Errorf("TotalPrice = %q, want £10.00", o.TotalPrice)
	}
	if o.SupplierID != "supplier-1" || o.SupplierName != "Amira" {
		t.Errorf("supplier = %q/%q, want supplier-1/Amira", o.SupplierID, o.SupplierName)
	}
	if o.PostImage != "biryani.jpg" || o.PostTitle != "Chicken Biryani" {
		t.Errorf("post snapshot = %q/%q", o.PostTitle, o.PostImage)
	}
	if o.CustomerPostcode != "E1 6AN" {
		t.Errorf("CustomerPostcode = %q, want E1 6AN", o.CustomerPostcode)
	}

	stored, _ := f.posts.Get(context.Background(), post.ID)
	if stored == nil || stored.Quantity != "6 Plates" {
		t.Fatalf("post quantity = %v, want 6 Plates", stored)
	}

	if _, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		Customer: customer("customer-2"),
		PostID:   post.ID,
		Quantity: 6,
	}); err != nil {
		t.Fatalf("second PlaceOrder() error = %v", err)
	}

	if stored, _ := f.posts.Get(context.Background(), post.ID); stored != nil {
		t.Errorf("sold out post still stored with %q", stored.Quantity)
	}
}

func TestPlaceOrderRejected(t *testing.T) {
	tests := []struct {
		name     string
		postID   func(post *feed.Post) uuid.UUID
		quantity int
		wantErr  error
	}{
		{
			name:     "insufficientStock",
			postID:   func(post *feed.Post) uuid.UUID { return post.ID },
			quantity: 11,
			wantErr:  errs.ErrValidation,
		},
		{
			name:     "zeroQuantity",
			postID:   func(post *feed.Post) uuid.UUID { return post.ID },
			quantity: 0,
			wantErr:  errs.ErrValidation,
		},
		{
			name:     "unknownPost",
			postID:   func(post *feed.Post) uuid.UUID { return uuid.New() },
			quantity: 1,
			wantErr:  errs.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			post := f.createPost(t, 10, "£2.50")

			_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
				Customer: customer("customer-1"),
				PostID:   tt.postID(post),
				Quantity: tt.quantity,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("PlaceOrder() error = %v, want %v", err, tt.wantErr)
			}

			orders, _ := f.orders.ListByCustomer(context.Background(), "customer-1")
			if len(orders) != 0 {
				t.Errorf("rejected order was stored: %d orders", len(orders))
			}
			stored, _ := f.posts.Get(context.Background(), post.ID)
			if stored.Quantity != "10 Plates" {
				t.Errorf("post quantity = %q, want 10 Plates", stored.Quantity)
			}
		})
	}
}

func TestPlaceOrderNeverOversells(t *testing.T) {
	f := newFixture(nil)
	post := f.createPost(t, 5, "Free")

	var placed int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
				Customer: customer("customer-1"),
				PostID:   post.ID,
				Quantity: 1,
			})
			if err == nil {
				atomic.AddInt32(&placed, 1)
			}
		}()
	}
	wg.Wait()

	if placed != 5 {
		t.Errorf("placed orders = %d, want 5", placed)
	}
	if stored, _ := f.posts.Get(context.Background(), post.ID); stored != nil {
		t.Errorf("post should be sold out, has %q", stored.Quantity)
	}
}

func TestPlaceOrderCompensatesFailedDecrement(t *testing.T) {
	posts := memory.NewPostRepo()
	f := newFixture(failingSaveRepo{posts})
	f.posts = posts
	post := f.createPost(t, 10, "£2.50")

	_, err := f.service.PlaceOrder(context.Background(), PlaceOrderInput{
		Customer: customer("customer-1"),
		PostID:   post.ID,
		Quantity: 4,
	})
	if err == nil {
		t.Fatal("PlaceOrder() should fail when stock cannot be updated")
	}

	orders, _ := f.orders.ListByCustomer(context.Background(), "customer-1")
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want the compensated order", len(orders))
	}
	if orders[0].Status != "cancelled" {
		t.Errorf("Status = %q, want cancelled", orders[0].Status)
	}

	stored, _ := posts.Get(context.Background(), post.ID)
	if stored.Quantity != "10 Plates" {
		t.Errorf("post quantity = %q, want 10 Plates", stored.Quantity)
	}
}

// gatedGetRepo holds the first n reads until all n have arrived.
type gatedGetRepo struct {
	*memory.PostRepo
	mu      sync.Mutex
	waiting int
	release chan struct{}
}

func newGatedGetRepo(posts *memory.PostRepo, n int) *gatedGetRepo {
	return &gatedGetRepo{PostRepo: posts, waiting: n, release: make(chan struct{})}
}

func (r *gatedGetRepo) Get(ctx context.Context, id uuid.UUID) (*feed.Post, error) {
	r.mu.Lock()
	gated := r.waiting > 0
	if gated {
		r.waiting--
		if r.waiting == 0 {
			close(r.release)
		}
	}
	r.mu.Unlock()

	if gated {
		<-r.release
	}
	return r.PostRepo.Get(ctx, id)
}

func TestPlaceOrderAcrossReplicasNeverOversells(t *testing.T) {
	tests := []struct {
		name     string
		stock    int
		quantity int
	}{
		{name: "bothSellOut", stock: 5, quantity: 5},
		{name: "bothPartial", stock: 5, quantity: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			post := f.createPost(t, tt.stock, "£2.50")

			// Each replica has its own lock set over the shared stores.
			gated := newGatedGetRepo(f.posts, 2)
			replicas := make([]*Service, 2)
			for i := range replicas {
				catalog := feed.NewCatalog(feed.CatalogDeps{Repo: gated, Now: func() time.Time { return testNow }}, nil)
				manager := order.NewManager(order.ManagerDeps{
					Repo:      f.orders,
					Passcodes: func() (string, error) { return "4821", nil },
					Now:       func() time.Time { return testNow },
				}, nil)
				replicas[i] = NewService(catalog, manager, nil)
			}

			errCh := make(chan error, len(replicas))
			var wg sync.WaitGroup
			for i, svc := range replicas {
				wg.Add(1)
				go func(i int, svc *Service) {
					defer wg.Done()
					_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
						Customer: customer(fmt.Sprintf("customer-%d", i)),
						PostID:   post.ID,
						Quantity: tt.quantity,
					})
					errCh <- err
				}(i, svc)
			}
			wg.Wait()
			close(errCh)

			var failed int
			for err := range errCh {
				if err == nil {
					continue
				}
				failed++
				if !errors.Is(err, errs.ErrConflict) && !errors.Is(err, errs.ErrNotFound) {
					t.Errorf("PlaceOrder() error = %v, want ErrConflict or ErrNotFound", err)
				}
			}
			if failed != 1 {
				t.Fatalf("failed orders = %d, want 1", failed)
			}

			orders, err := f.orders.ListByPost(context.Background(), post.ID)
			if err != nil {
				t.Fatalf("ListByPost() error = %v", err)
			}
			var live, cancelled int
			for _, o := range orders {
				if o.Status == "cancelled" {
					cancelled++
					continue
				}
				live += o.Quantity
			}
			if live > tt.stock {
				t.Errorf("live ordered units = %d, stock was %d", live, tt.stock)
			}
			if cancelled != 1 {
				t.Errorf("cancelled orders = %d, want 1", cancelled)
			}
		})
	}
}

func completeOrder(t *testing.T, f *fixture, postID uuid.UUID, customerID string, quantity int) *order.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.service.PlaceOrder(ctx, PlaceOrderInput{Customer: customer(customerID), PostID: postID, Quantity: quantity})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if _, err := f.manager.MarkReady(ctx, o.ID, nil); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}
	if _, err := f.manager.VerifyPasscode(ctx, o.ID, "4821"); err != nil {
		t.Fatalf("VerifyPasscode() error = %v", err)
	}
	return o
}

func TestRateOrderRefreshesPostRating(t *testing.T) {
	f := newFixture(nil)
	post := f.createPost(t, 10, "£2.50")

	first := completeOrder(t, f, post.ID, "customer-1", 1)
	second := completeOrder(t, f, post.ID, "customer-2", 1)

	if _, err := f.service.RateOrder(context.Background(), first.ID, 4, nil, order.RoleCustomer); err != nil {
		t.Fatalf("RateOrder() error = %v", err)
	}
	stored, _ := f.posts.Get(context.Background(), post.ID)
	if stored.Rating != 4 {
		t.Errorf("Rating = %v, want 4", stored.Rating)
	}

	if _, err := f.service.RateOrder(context.Background(), second.ID, 5, nil, order.RoleCustomer); err != nil {
		t.Fatalf("RateOrder() error = %v", err)
	}
	stored, _ = f.posts.Get(context.Background(), post.ID)
	if stored.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", stored.Rating)
	}

	if _, err := f.service.RateOrder(context.Background(), second.ID, 1, nil, order.RoleSupplier); err != nil {
		t.Fatalf("supplier RateOrder() error = %v", err)
	}
	stored, _ = f.posts.Get(context.Background(), post.ID)
	if stored.Rating != 4.5 {
		t.Errorf("supplier rating changed post rating to %v", stored.Rating)
	}
}

// hookedOrderRepo reports order saves and post listings to the test.
type hookedOrderRepo struct {
	*memory.OrderRepo
	mu     sync.Mutex
	lists  int
	onSave func(o *order.Order)
	onList func(call int)
}

func (r *hookedOrderRepo) Save(ctx context.Context, o *order.Order) error {
	if err := r.OrderRepo.Save(ctx, o); err != nil {
		return err
	}
	if r.onSave != nil {
		r.onSave(o)
	}
	return nil
}

func (r *hookedOrderRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]*order.Order, error) {
	orders, err := r.OrderRepo.ListByPost(ctx, postID)
	r.mu.Lock()
	r.lists++
	call := r.lists
	r.mu.Unlock()
	if r.onList != nil {
		r.onList(call)
	}
	return orders, err
}

func TestRateOrderConcurrentRatingsKeepLatestAverage(t *testing.T) {
	f := newFixture(nil)
	post := f.createPost(t, 10, "£2.50")
	first := completeOrder(t, f, post.ID, "customer-1", 1)
	second := completeOrder(t, f, post.ID, "customer-2", 1)

	listed := make(chan struct{})
	resume := make(chan struct{})
	secondRated := make(chan struct{})
	secondListed := make(chan struct{}, 1)

	repo := &hookedOrderRepo{OrderRepo: f.orders}
	repo.onList = func(call int) {
		switch call {
		case 1:
			close(listed)
			<-resume
		case 2:
			secondListed <- struct{}{}
		}
	}
	repo.onSave = func(o *order.Order) {
		if o.ID == second.ID {
			close(secondRated)
		}
	}

	manager := order.NewManager(order.ManagerDeps{
		Repo:      repo,
		Passcodes: func() (string, error) { return "4821", nil },
		Now:       func() time.Time { return testNow },
	}, nil)
	svc := NewService(f.catalog, manager, nil)

	errCh := make(chan error, 2)
	go func() {
		_, err := svc.RateOrder(context.Background(), first.ID, 5, nil, order.RoleCustomer)
		errCh <- err
	}()

	// The first refresh has read only its own rating.
	<-listed

	go func() {
		_, err := svc.RateOrder(context.Background(), second.ID, 1, nil, order.RoleCustomer)
		errCh <- err
	}()

	<-secondRated
	select {
	case <-secondListed:
	case <-time.After(50 * time.Millisecond):
	}
	close(resume)

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("RateOrder() error = %v", err)
		}
	}

	stored, _ := f.posts.Get(context.Background(), post.ID)
	if stored.Rating != 3 {
		t.Errorf("Rating = %v, want 3 from ratings 5 and 1", stored.Rating)
	}
}

func TestRateOrderSoldOutPost(t *testing.T) {
	f := newFixture(nil)
	post := f.createPost(t, 2, "£2.50")

	o := completeOrder(t, f, post.ID, "customer-1", 2)

	got, err := f.service.RateOrder(context.Background(), o.ID, 3, nil, order.RoleCustomer)
	if err != nil {
		t.Fatalf("RateOrder() error = %v", err)
	}
	if got.CustomerRating == nil || *got.CustomerRating != 3 {
		t.Errorf("CustomerRating = %v, want 3", got.CustomerRating)
	}
}

func TestRateOrderNotCompleted(t *testing.T) {
	f := newFixture(nil)
	post := f.createPost(t, 10, "£2.50")

	o, _ := f.service.PlaceOrder(context.Background(), PlaceOrderInput{Customer: customer("customer-1"), PostID: post.ID, Quantity: 1})

	if _, err := f.service.RateOrder(context.Background(), o.ID, 5, nil, order.RoleCustomer); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("RateOrder() error = %v, want ErrInvalidState", err)
	}
}

func TestAverageCustomerRating(t *testing.T) {
	rated := func(status string, rating int) *order.Order {
		o := order.NewOrder()
		o.Status = status
		o.CustomerRating = &rating
		return o
	}

	tests := []struct {
		name   string
		orders []*order.Order
		want   float64
		wantOK bool
	}{
		{name: "empty"},
		{name: "unrated", orders: []*order.Order{order.NewOrder()}},
		{name: "single", orders: []*order.Order{rated("completed", 4)}, want: 4, wantOK: true},
		{name: "rounded", orders: []*order.Order{rated("completed", 4), rated("completed", 4), rated("completed", 5)}, want: 4.3, wantOK: true},
		{name: "ignoresOpenOrders", orders: []*order.Order{rated("completed", 2), rated("ready", 5)}, want: 2, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AverageCustomerRating(tt.orders)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("AverageCustomerRating() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
