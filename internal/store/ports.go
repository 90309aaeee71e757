// Package store defines the ports every inventory backend implements.
package store

import (
	"context"
	"errors"

	"expirygenie/internal/core"
)

const (
	PurchaseDate DateField = "purchase_date"
	ExpiryDate   DateField = "expiry_date"
)

// DateField selects which of an item's dates an update targets.
type DateField string

func (f DateField) Valid() bool {
	return f == PurchaseDate || f == ExpiryDate
}

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("food item not found")
)

type (
	// UserStore persists user accounts.
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UpdatePassword(ctx context.Context, email, passwordHash string) error
		// AddMoneySaved credits the user's money-saved counter.
		AddMoneySaved(ctx context.Context, email string, deltaCents int64) error
	}

	// ItemStore persists food items scoped per user. All operations
	// taking an id also take the owner's email so one user cannot touch
	// another user's rows.
	ItemStore interface {
		AddItem(ctx context.Context, item core.FoodItem) (int64, error)
		ItemsByUser(ctx context.Context, email string) ([]core.FoodItem, error)
		UpdateItemDetails(ctx context.Context, id int64, email, name, quantity string, opened bool) error
		UpdateItemDate(ctx context.Context, id int64, email string, field DateField, date core.Date) error
		DeleteItem(ctx context.Context, id int64, email string) error
		// DeleteExpired removes all items past their expiry and returns
		// how many were dropped.
		DeleteExpired(ctx context.Context, email string, today core.Date) (int, error)
	}

	// ExpiryPredictor estimates expiry from the user's purchase history.
	// ok is false when there is no history to learn from.
	ExpiryPredictor interface {
		PredictExpiry(ctx context.Context, email, name string, purchase core.Date) (d core.Date, ok bool, err error)
	}

	// Backend is the full set of operations a data backend provides.
	Backend interface {
		UserStore
		ItemStore
	}
)
