package core

import (
	"errors"
	"testing"
)

func validItem() FoodItem {
	return FoodItem{
		UserEmail:    "a@example.com",
		Name:         "Milk",
		Category:     "Dairy",
		PurchaseDate: NewDate(2025, 6, 1),
		ExpiryDate:   NewDate(2025, 6, 8),
		Quantity:     "1 gallon",
		AddedMethod:  MethodManual,
	}
}

func TestFoodItemValidate(t *testing.T) {
	if err := validItem().Validate(); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*FoodItem)
		want   error
	}{
		{"empty name", func(f *FoodItem) { f.Name = "  " }, ErrEmptyName},
		{"empty category", func(f *FoodItem) { f.Category = "" }, ErrEmptyCategory},
		{"unknown category", func(f *FoodItem) { f.Category = "Electronics" }, ErrInvalidCategory},
		{"expiry before purchase", func(f *FoodItem) { f.ExpiryDate = NewDate(2025, 5, 1) }, ErrExpiryBeforeBuy},
		{"bad method", func(f *FoodItem) { f.AddedMethod = "telepathy" }, ErrInvalidMethod},
	}
	for _, tc := range cases {
		it := validItem()
		tc.mutate(&it)
		if err := it.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	// Zero dates fail with wrapped messages, not sentinels.
	it := validItem()
	it.PurchaseDate = Date{}
	if err := it.Validate(); err == nil {
		t.Error("zero purchase date accepted")
	}
}

func TestUserValidate(t *testing.T) {
	u := User{Email: "a@example.com", Name: "Ada"}
	if err := u.Validate(); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	cases := []struct {
		name string
		user User
		want error
	}{
		{"empty email", User{Name: "Ada"}, ErrEmptyEmail},
		{"no at sign", User{Email: "nope", Name: "Ada"}, ErrInvalidEmail},
		{"no domain dot", User{Email: "a@nope", Name: "Ada"}, ErrInvalidEmail},
		{"empty name", User{Email: "a@example.com"}, ErrEmptyUserName},
	}
	for _, tc := range cases {
		if err := tc.user.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate("2025-06-15")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != "2025-06-15" {
		t.Fatalf("round-trip: %s", d)
	}
	if got := d.AddDays(20).String(); got != "2025-07-05" {
		t.Fatalf("add days: %s", got)
	}
	if got := d.DaysUntil(NewDate(2025, 6, 18)); got != 3 {
		t.Fatalf("days until: %d", got)
	}
	if got := d.DaysUntil(NewDate(2025, 6, 10)); got != -5 {
		t.Fatalf("negative days until: %d", got)
	}
	if _, err := ParseDate("15/06/2025"); err == nil {
		t.Fatal("bad format accepted")
	}
}

func TestSummarize(t *testing.T) {
	today := NewDate(2025, 6, 15)
	items := []FoodItem{
		{Name: "Milk", Category: "Dairy", Quantity: "1", ExpiryDate: NewDate(2025, 6, 16), AddedMethod: MethodManual},
		{Name: "Rice", Category: "Pantry", Quantity: "2", ExpiryDate: NewDate(2026, 1, 1), AddedMethod: MethodVoice},
		{Name: "Fish", Category: "Meat & Poultry", Quantity: "1", ExpiryDate: NewDate(2025, 6, 10), AddedMethod: MethodManual},
	}
	s := Summarize(items, today)
	if s.Total != 3 || s.Safe != 1 || s.Soon != 1 || s.Expired != 1 {
		t.Fatalf("buckets: %+v", s)
	}
	if len(s.ByCategory) != 3 {
		t.Fatalf("categories: %+v", s.ByCategory)
	}
	if len(s.ByMethod) != 2 || s.ByMethod[0].Method != MethodManual || s.ByMethod[0].Count != 2 {
		t.Fatalf("methods: %+v", s.ByMethod)
	}
	// milk 350 + rice 2*200 + fish 1000
	if s.ValueCents != 350+400+1000 {
		t.Fatalf("value: %d", s.ValueCents)
	}
}

func TestEstimateValueCents(t *testing.T) {
	cases := []struct {
		name, qty string
		want      int64
	}{
		{"Whole Milk", "1 gallon", 350},
		{"Eggs", "1 dozen", 300},
		{"Chicken Breast", "2", 1600},
		{"Chicken Breast", "10", 4000}, // capped at 5x
		{"Mystery", "1", 300},
	}
	for _, tc := range cases {
		if got := EstimateValueCents(tc.name, tc.qty); got != tc.want {
			t.Errorf("%s %s: got %d, want %d", tc.name, tc.qty, got, tc.want)
		}
	}
}
