package services

import (
	"context"
	"errors"
	"testing"

	"expirygenie/internal/core"
	"expirygenie/internal/store"
	"expirygenie/internal/store/memory"
)

type fakePublisher struct {
	synced []int64
	err    error
}

func (f *fakePublisher) PublishItemSync(_ context.Context, id, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.synced = append(f.synced, id)
	return nil
}

func newService(t *testing.T, pub SyncPublisher) (*ItemService, *memory.Store) {
	t.Helper()
	backend := memory.New()
	err := backend.CreateUser(context.Background(), core.User{Email: "ana@example.com", Name: "Ana", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return NewItemService(backend, backend, pub), backend
}

func TestAddItemFillsDefaults(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	id, err := svc.AddItem(ctx, core.FoodItem{
		UserEmail:    "ana@example.com",
		Name:         "  chicken breast ",
		PurchaseDate: core.NewDate(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	items, err := svc.Items(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}

	item := items[0]
	if item.Name != "chicken breast" {
		t.Errorf("Name = %q, want trimmed", item.Name)
	}
	if item.Category != "Meat & Poultry" {
		t.Errorf("Category = %q, want Meat & Poultry", item.Category)
	}
	if item.Quantity != "1" || item.AddedMethod != core.MethodManual {
		t.Errorf("defaults = %q, %q", item.Quantity, item.AddedMethod)
	}
	// Shelf life for chicken is 3 days.
	if item.ExpiryDate.String() != "2025-06-04" {
		t.Errorf("ExpiryDate = %s, want 2025-06-04", item.ExpiryDate)
	}

	if len(pub.synced) != 1 || pub.synced[0] != id {
		t.Errorf("published sync ids = %v, want [%d]", pub.synced, id)
	}
}

func TestAddItemPrefersHistory(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	// History: two milk purchases lasting 14 days each.
	for _, m := range []int{3, 4} {
		_, err := svc.AddItem(ctx, core.FoodItem{
			UserEmail:    "ana@example.com",
			Name:         "Milk",
			PurchaseDate: core.NewDate(2025, m, 1),
			ExpiryDate:   core.NewDate(2025, m, 15),
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
	}

	if _, err := svc.AddItem(ctx, core.FoodItem{
		UserEmail:    "ana@example.com",
		Name:         "Milk",
		PurchaseDate: core.NewDate(2025, 6, 1),
	}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	items, _ := svc.Items(ctx, "ana@example.com")
	var latest core.FoodItem
	for _, item := range items {
		if item.PurchaseDate.String() == "2025-06-01" {
			latest = item
		}
	}
	// 14-day history beats the 7-day default shelf life.
	if latest.ExpiryDate.String() != "2025-06-15" {
		t.Errorf("ExpiryDate = %s, want 2025-06-15 from history", latest.ExpiryDate)
	}
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.AddItem(context.Background(), core.FoodItem{
		UserEmail:    "ana@example.com",
		Name:         "   ",
		PurchaseDate: core.NewDate(2025, 6, 1),
	})
	if !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("AddItem(blank name) error = %v, want ErrEmptyName", err)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newService(t, pub)

	_, err := svc.AddItem(context.Background(), core.FoodItem{
		UserEmail:    "ana@example.com",
		Name:         "Milk",
		PurchaseDate: core.NewDate(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("AddItem() error = %v, want nil despite publish failure", err)
	}
}

func TestConsumeItemCreditsMoneySaved(t *testing.T) {
	svc, backend := newService(t, nil)
	ctx := context.Background()
	today := core.NewDate(2025, 6, 5)

	fresh, err := svc.AddItem(ctx, core.FoodItem{
		UserEmail:    "ana@example.com",
		Name:         "milk",
		Quantity:     "2",
		PurchaseDate: core.NewDate(2025, 6, 1),
		ExpiryDate:   core.NewDate(2025, 6, 10),
	})
	if err != nil {
		t.Fatal(err)
	}
	expired, err := svc.AddItem(ctx, core.FoodItem{
		UserEmail:    "ana@example.com",
		Name:         "yogurt",
		PurchaseDate: core.NewDate(2025, 5, 20),
		ExpiryDate:   core.NewDate(2025, 5, 27),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ConsumeItem(ctx, fresh, "ana@example.com", today); err != nil {
		t.Fatalf("ConsumeItem(fresh) error = %v", err)
	}
	u, _ := backend.UserByEmail(ctx, "ana@example.com")
	// 2 x 350 cents for milk.
	if u.MoneySavedCents != 700 {
		t.Errorf("MoneySavedCents = %d, want 700", u.MoneySavedCents)
	}

	// Consuming an already expired item saves nothing.
	if err := svc.ConsumeItem(ctx, expired, "ana@example.com", today); err != nil {
		t.Fatalf("ConsumeItem(expired) error = %v", err)
	}
	u, _ = backend.UserByEmail(ctx, "ana@example.com")
	if u.MoneySavedCents != 700 {
		t.Errorf("MoneySavedCents = %d after expired consume, want 700", u.MoneySavedCents)
	}

	if err := svc.ConsumeItem(ctx, 999, "ana@example.com", today); !errors.Is(err, store.ErrItemNotFound) {
		t.Errorf("ConsumeItem(missing) error = %v, want ErrItemNotFound", err)
	}
}
