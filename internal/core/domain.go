package core

import (
	"errors"
	"strings"
	"time"
)

const (
	MethodManual AddedMethod = "manual"
	MethodVoice  AddedMethod = "voice"
	MethodImage  AddedMethod = "image"
)

type (
	// AddedMethod records how a food item entered the inventory.
	AddedMethod string

	// Date is a day-granularity calendar date stored in UTC.
	Date struct {
		time.Time
	}

	User struct {
		ID              int64
		Email           string
		Name            string
		PasswordHash    string
		MoneySavedCents int64
		CreatedAt       time.Time
	}

	FoodItem struct {
		ID           int64
		UserEmail    string
		Name         string
		Category     string
		PurchaseDate Date
		ExpiryDate   Date
		Quantity     string
		Opened       bool
		AddedMethod  AddedMethod
		CreatedAt    time.Time
	}
)

// Categories is the fixed set of food categories offered in the UI.
var Categories = []string{
	"Grocery",
	"Cooked Food",
	"Pantry",
	"Frozen",
	"Dairy",
	"Meat & Poultry",
	"Fruits",
	"Vegetables",
	"Beverages",
	"Snacks",
	"Condiments",
	"Bakery",
}

var (
	ErrEmptyName       = errors.New("empty item name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidCategory = errors.New("unknown category")
	ErrInvalidMethod   = errors.New("invalid added method")
	ErrEmptyEmail      = errors.New("empty email")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrEmptyUserName   = errors.New("empty user name")
	ErrExpiryBeforeBuy = errors.New("expiry date before purchase date")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// Today returns the current calendar day in UTC.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (m AddedMethod) Validate() error {
	switch m {
	case MethodManual, MethodVoice, MethodImage:
		return nil
	}
	return ErrInvalidMethod
}

// ValidCategory reports whether name is one of the fixed categories.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

func (u User) Validate() error {
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return ErrEmptyEmail
	}
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyUserName
	}
	if len(u.Name) > 100 {
		return errors.New("user name too long (max 100 characters)")
	}
	return nil
}

func (f FoodItem) Validate() error {
	if len(strings.TrimSpace(f.Name)) == 0 {
		return ErrEmptyName
	}
	if len(f.Name) > 200 {
		return errors.New("item name too long (max 200 characters)")
	}
	if strings.TrimSpace(f.Category) == "" {
		return ErrEmptyCategory
	}
	if !ValidCategory(f.Category) {
		return ErrInvalidCategory
	}
	if err := f.PurchaseDate.Validate(); err != nil {
		return errors.New("invalid purchase date: " + err.Error())
	}
	if err := f.ExpiryDate.Validate(); err != nil {
		return errors.New("invalid expiry date: " + err.Error())
	}
	if f.ExpiryDate.Before(f.PurchaseDate.Time) {
		return ErrExpiryBeforeBuy
	}
	if err := f.AddedMethod.Validate(); err != nil {
		return err
	}
	return nil
}
