package core

import (
	"strings"
	"testing"
)

func TestStatusOn(t *testing.T) {
	today := NewDate(2025, 6, 15)
	cases := []struct {
		name   string
		expiry Date
		want   ExpiryStatus
	}{
		{"expired yesterday", NewDate(2025, 6, 14), StatusExpired},
		{"expires today", NewDate(2025, 6, 15), StatusSoon},
		{"expires in 3 days", NewDate(2025, 6, 18), StatusSoon},
		{"expires in 4 days", NewDate(2025, 6, 19), StatusSafe},
		{"expires next year", NewDate(2026, 6, 15), StatusSafe},
	}
	for _, tc := range cases {
		if got := StatusOn(tc.expiry, today); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestStatusWithinCustomWindow(t *testing.T) {
	today := NewDate(2025, 6, 15)
	if got := StatusWithin(NewDate(2025, 6, 21), today, 7); got != StatusSoon {
		t.Fatalf("7-day window: got %s", got)
	}
	if got := StatusWithin(NewDate(2025, 6, 21), today, 3); got != StatusSafe {
		t.Fatalf("3-day window: got %s", got)
	}
}

func TestShelfLifeDays(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"Whole Milk", 7},
		{"Ground Beef 80/20", 2}, // longer keyword wins over "beef"
		{"Beef steak", 5},
		{"Basmati Rice", 365},
		{"unknown exotic thing", 7},
	}
	for _, tc := range cases {
		if got := ShelfLifeDays(tc.name); got != tc.want {
			t.Errorf("%q: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestEstimateExpiryOpenedReduction(t *testing.T) {
	purchase := NewDate(2025, 1, 1)

	// Cheese: 14 days sealed, min(7, 14/3)=4 once opened.
	if got := EstimateExpiry("cheese", purchase, false); got.String() != "2025-01-15" {
		t.Fatalf("sealed cheese: got %s", got)
	}
	if got := EstimateExpiry("cheese", purchase, true); got.String() != "2025-01-05" {
		t.Fatalf("opened cheese: got %s", got)
	}

	// Fish: 2 days sealed, max(1, 2/2)=1 once opened.
	if got := EstimateExpiry("fish", purchase, true); got.String() != "2025-01-02" {
		t.Fatalf("opened fish: got %s", got)
	}
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Whole Milk", "Dairy"},
		{"Chicken Breast", "Meat & Poultry"},
		{"Green Apple", "Fruits"},
		{"Cherry Tomato", "Vegetables"},
		{"Sourdough Bread", "Bakery"},
		{"Frozen Peas", "Frozen"},
		{"BBQ Sauce", "Condiments"},
		{"Mystery Item", "Grocery"},
	}
	for _, tc := range cases {
		if got := Categorize(tc.name); got != tc.want {
			t.Errorf("%q: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	got := Suggest("ch")
	if len(got) == 0 || len(got) > 5 {
		t.Fatalf("expected 1-5 suggestions, got %v", got)
	}
	for _, s := range got {
		if !strings.Contains(strings.ToLower(s), "ch") {
			t.Errorf("suggestion %q does not match input", s)
		}
	}
	if Suggest("") != nil {
		t.Fatal("empty input should return nil")
	}
}

func TestFilterAndSortItems(t *testing.T) {
	today := NewDate(2025, 6, 15)
	items := []FoodItem{
		{Name: "Milk", Category: "Dairy", ExpiryDate: NewDate(2025, 6, 16), PurchaseDate: NewDate(2025, 6, 10)},
		{Name: "Rice", Category: "Pantry", ExpiryDate: NewDate(2026, 6, 1), PurchaseDate: NewDate(2025, 6, 1)},
		{Name: "Old Fish", Category: "Meat & Poultry", ExpiryDate: NewDate(2025, 6, 10), PurchaseDate: NewDate(2025, 6, 8)},
	}

	dairy := FilterItems(items, "Dairy", "", today)
	if len(dairy) != 1 || dairy[0].Name != "Milk" {
		t.Fatalf("category filter: %v", dairy)
	}

	expired := FilterItems(items, "All", StatusExpired, today)
	if len(expired) != 1 || expired[0].Name != "Old Fish" {
		t.Fatalf("status filter: %v", expired)
	}

	SortItems(items, "expiry_date", true)
	if items[0].Name != "Old Fish" || items[2].Name != "Rice" {
		t.Fatalf("sort by expiry: %v", items)
	}

	SortItems(items, "name", false)
	if items[0].Name != "Rice" {
		t.Fatalf("sort by name desc: %v", items)
	}
}

func TestExpiringWithinAndExpired(t *testing.T) {
	today := NewDate(2025, 6, 15)
	items := []FoodItem{
		{Name: "a", ExpiryDate: NewDate(2025, 6, 14)},
		{Name: "b", ExpiryDate: NewDate(2025, 6, 15)},
		{Name: "c", ExpiryDate: NewDate(2025, 6, 18)},
		{Name: "d", ExpiryDate: NewDate(2025, 7, 1)},
	}
	soon := ExpiringWithin(items, today, 3)
	if len(soon) != 2 || soon[0].Name != "b" || soon[1].Name != "c" {
		t.Fatalf("expiring within: %v", soon)
	}
	expired := ExpiredItems(items, today)
	if len(expired) != 1 || expired[0].Name != "a" {
		t.Fatalf("expired: %v", expired)
	}
}
