// Package memory is an in-process inventory backend used for local
// development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"expirygenie/internal/core"
	"expirygenie/internal/store"
)

type Store struct {
	mu     sync.Mutex
	users  map[string]core.User
	items  map[string][]core.FoodItem // keyed by user email
	nextID int64
}

func New() *Store {
	return &Store{
		users:  make(map[string]core.User),
		items:  make(map[string][]core.FoodItem),
		nextID: 1,
	}
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return store.ErrUserExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.ID = s.nextID
	s.nextID++
	s.users[u.Email] = u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return core.User{}, store.ErrUserNotFound
	}
	return u, nil
}

// Users lists every account sorted by email.
func (s *Store) Users(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (s *Store) UpdatePassword(_ context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return store.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	s.users[email] = u
	return nil
}

func (s *Store) AddMoneySaved(_ context.Context, email string, deltaCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return store.ErrUserNotFound
	}
	u.MoneySavedCents += deltaCents
	s.users[email] = u
	return nil
}

func (s *Store) AddItem(_ context.Context, item core.FoodItem) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID
	s.nextID++
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.items[item.UserEmail] = append(s.items[item.UserEmail], item)
	return item.ID, nil
}

// ItemsByUser returns the user's items ordered by expiry date ascending.
func (s *Store) ItemsByUser(_ context.Context, email string) ([]core.FoodItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.FoodItem(nil), s.items[email]...)
	core.SortItems(out, "expiry_date", true)
	return out, nil
}

func (s *Store) UpdateItemDetails(_ context.Context, id int64, email, name, quantity string, opened bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[email]
	for i := range items {
		if items[i].ID == id {
			items[i].Name = name
			items[i].Quantity = quantity
			items[i].Opened = opened
			return nil
		}
	}
	return store.ErrItemNotFound
}

func (s *Store) UpdateItemDate(_ context.Context, id int64, email string, field store.DateField, date core.Date) error {
	if !field.Valid() {
		return store.ErrItemNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[email]
	for i := range items {
		if items[i].ID == id {
			if field == store.PurchaseDate {
				items[i].PurchaseDate = date
			} else {
				items[i].ExpiryDate = date
			}
			return nil
		}
	}
	return store.ErrItemNotFound
}

func (s *Store) DeleteItem(_ context.Context, id int64, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[email]
	for i := range items {
		if items[i].ID == id {
			s.items[email] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrItemNotFound
}

func (s *Store) DeleteExpired(_ context.Context, email string, today core.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[email]
	kept := items[:0]
	removed := 0
	for _, it := range items {
		if it.ExpiryDate.Before(today.Time) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	s.items[email] = kept
	return removed, nil
}

// PredictExpiry averages the shelf life of previously logged items whose
// name contains (or is contained by) the given name.
func (s *Store) PredictExpiry(_ context.Context, email, name string, purchase core.Date) (core.Date, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := strings.ToLower(name)
	total, count := 0, 0
	for _, it := range s.items[email] {
		itLower := strings.ToLower(it.Name)
		if !strings.Contains(itLower, lower) && !strings.Contains(lower, itLower) {
			continue
		}
		life := it.PurchaseDate.DaysUntil(it.ExpiryDate)
		if life > 0 {
			total += life
			count++
		}
	}
	if count == 0 {
		return core.Date{}, false, nil
	}
	return purchase.AddDays(total / count), true, nil
}

var (
	_ store.Backend         = (*Store)(nil)
	_ store.ExpiryPredictor = (*Store)(nil)
)
