package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dawatapp/dawat/services/marketplace/internal/errs"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/google/uuid"
)

func newOrder(customerID, supplierID string, postID uuid.UUID, createdAt time.Time) *order.Order {
	o := order.NewOrder()
	o.CustomerID = customerID
	o.SupplierID = supplierID
	o.PostID = postID
	o.Quantity = 1
	o.PricePerItem = "£2.00"
	o.TotalPrice = "£2.00"
	o.CreatedAt = createdAt
	return o
}

func TestOrderRepoSaveVersionCheck(t *testing.T) {
	repo := NewOrderRepo()
	ctx := context.Background()
	o := newOrder("customer-1", "supplier-1", uuid.New(), time.Now())

	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, _ := repo.Get(ctx, o.ID)
	stale, _ := repo.Get(ctx, o.ID)

	if err := first.MarkReady(time.Now(), nil); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := stale.Cancel(time.Now()); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := repo.Save(ctx, stale); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("stale Save() error = %v, want ErrConflict", err)
	}

	stored, _ := repo.Get(ctx, o.ID)
	if stored.Status != "ready" {
		t.Errorf("Status = %q, want ready", stored.Status)
	}
}

func TestOrderRepoKeepsPasscode(t *testing.T) {
	repo := NewOrderRepo()
	ctx := context.Background()
	o := newOrder("customer-1", "supplier-1", uuid.New(), time.Now())
	o.Passcode = "4821"
	_ = repo.Create(ctx, o)

	got, _ := repo.Get(ctx, o.ID)
	if got.Passcode != "4821" {
		t.Errorf("Passcode = %q, want 4821", got.Passcode)
	}
}

func TestOrderRepoLists(t *testing.T) {
	repo := NewOrderRepo()
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	postA, postB := uuid.New(), uuid.New()

	first := newOrder("customer-1", "supplier-1", postA, base)
	second := newOrder("customer-1", "supplier-2", postB, base.Add(time.Minute))
	third := newOrder("customer-2", "supplier-1", postA, base.Add(2*time.Minute))
	for _, o := range []*order.Order{first, second, third} {
		_ = repo.Create(ctx, o)
	}

	tests := []struct {
		name string
		list func() ([]*order.Order, error)
		want []uuid.UUID
	}{
		{
			name: "byCustomer",
			list: func() ([]*order.Order, error) { return repo.ListByCustomer(ctx, "customer-1") },
			want: []uuid.UUID{second.ID, first.ID},
		},
		{
			name: "bySupplier",
			list: func() ([]*order.Order, error) { return repo.ListBySupplier(ctx, "supplier-1") },
			want: []uuid.UUID{third.ID, first.ID},
		},
		{
			name: "byPost",
			list: func() ([]*order.Order, error) { return repo.ListByPost(ctx, postB) },
			want: []uuid.UUID{second.ID},
		},
		{
			name: "noMatch",
			list: func() ([]*order.Order, error) { return repo.ListByCustomer(ctx, "nobody") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.list()
			if err != nil {
				t.Fatalf("list error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d orders, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	repo.Reset()
	if got, _ := repo.ListByCustomer(ctx, "customer-1"); len(got) != 0 {
		t.Errorf("ListByCustomer() after Reset() returned %d orders", len(got))
	}
}
