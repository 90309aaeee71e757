// Package s3 is an object-store backend. Users live in one JSON object
// and each user's inventory in its own object, so the layout stays
// readable with plain bucket tooling.
package s3

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"expirygenie/internal/core"
	"expirygenie/internal/store"
)

const (
	usersKey   = "data/users.json"
	itemsDir   = "data/food_items/"
	counterKey = "data/next_item_id.json"
)

// Client is the subset of the S3 API the store needs. *s3.Client
// satisfies it.
type Client interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

type Store struct {
	client Client
	bucket string

	// Serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

var (
	_ store.Backend         = (*Store)(nil)
	_ store.ExpiryPredictor = (*Store)(nil)
)

func New(client Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

type userRecord struct {
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"password_hash"`
	MoneySavedCents int64     `json:"money_saved_cents"`
	CreatedAt       time.Time `json:"created_at"`
}

type itemRecord struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	PurchaseDate string    `json:"purchase_date"`
	ExpiryDate   string    `json:"expiry_date"`
	Quantity     string    `json:"quantity"`
	Opened       bool      `json:"opened"`
	AddedMethod  string    `json:"added_method"`
	CreatedAt    time.Time `json:"created_at"`
}

type idCounter struct {
	Next int64 `json:"next"`
}

func (s *Store) CreateUser(ctx context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	if _, ok := users[u.Email]; ok {
		return store.ErrUserExists
	}

	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	users[u.Email] = userRecord{
		Email:           u.Email,
		Name:            u.Name,
		PasswordHash:    u.PasswordHash,
		MoneySavedCents: u.MoneySavedCents,
		CreatedAt:       created,
	}
	return s.saveUsers(ctx, users)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	rec, ok := users[email]
	if !ok {
		return core.User{}, store.ErrUserNotFound
	}
	return core.User{
		Email:           rec.Email,
		Name:            rec.Name,
		PasswordHash:    rec.PasswordHash,
		MoneySavedCents: rec.MoneySavedCents,
		CreatedAt:       rec.CreatedAt,
	}, nil
}

func (s *Store) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return s.updateUser(ctx, email, func(rec *userRecord) {
		rec.PasswordHash = passwordHash
	})
}

func (s *Store) AddMoneySaved(ctx context.Context, email string, deltaCents int64) error {
	return s.updateUser(ctx, email, func(rec *userRecord) {
		rec.MoneySavedCents += deltaCents
	})
}

func (s *Store) updateUser(ctx context.Context, email string, apply func(*userRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	rec, ok := users[email]
	if !ok {
		return store.ErrUserNotFound
	}
	apply(&rec)
	users[email] = rec
	return s.saveUsers(ctx, users)
}

func (s *Store) AddItem(ctx context.Context, item core.FoodItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID(ctx)
	if err != nil {
		return 0, err
	}

	records, err := s.loadItems(ctx, item.UserEmail)
	if err != nil {
		return 0, err
	}

	created := item.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	records = append(records, itemRecord{
		ID:           id,
		Name:         item.Name,
		Category:     item.Category,
		PurchaseDate: item.PurchaseDate.String(),
		ExpiryDate:   item.ExpiryDate.String(),
		Quantity:     item.Quantity,
		Opened:       item.Opened,
		AddedMethod:  string(item.AddedMethod),
		CreatedAt:    created,
	})
	if err := s.saveItems(ctx, item.UserEmail, records); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) ItemsByUser(ctx context.Context, email string) ([]core.FoodItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadItems(ctx, email)
	if err != nil {
		return nil, err
	}

	items := make([]core.FoodItem, 0, len(records))
	for _, rec := range records {
		item, err := rec.toItem(email)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ExpiryDate.Before(items[j].ExpiryDate.Time)
	})
	return items, nil
}

func (s *Store) UpdateItemDetails(ctx context.Context, id int64, email, name, quantity string, opened bool) error {
	return s.updateItem(ctx, id, email, func(rec *itemRecord) {
		rec.Name = name
		rec.Quantity = quantity
		rec.Opened = opened
	})
}

func (s *Store) UpdateItemDate(ctx context.Context, id int64, email string, field store.DateField, date core.Date) error {
	if !field.Valid() {
		return fmt.Errorf("unsupported date field: %s", field)
	}
	return s.updateItem(ctx, id, email, func(rec *itemRecord) {
		if field == store.PurchaseDate {
			rec.PurchaseDate = date.String()
		} else {
			rec.ExpiryDate = date.String()
		}
	})
}

func (s *Store) updateItem(ctx context.Context, id int64, email string, apply func(*itemRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadItems(ctx, email)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			apply(&records[i])
			return s.saveItems(ctx, email, records)
		}
	}
	return store.ErrItemNotFound
}

func (s *Store) DeleteItem(ctx context.Context, id int64, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadItems(ctx, email)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			records = append(records[:i], records[i+1:]...)
			return s.saveItems(ctx, email, records)
		}
	}
	return store.ErrItemNotFound
}

func (s *Store) DeleteExpired(ctx context.Context, email string, today core.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadItems(ctx, email)
	if err != nil {
		return 0, err
	}

	kept := records[:0]
	dropped := 0
	for _, rec := range records {
		exp, err := core.ParseDate(rec.ExpiryDate)
		if err == nil && exp.Before(today.Time) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	if dropped == 0 {
		return 0, nil
	}
	if err := s.saveItems(ctx, email, kept); err != nil {
		return 0, err
	}
	return dropped, nil
}

func (s *Store) PredictExpiry(ctx context.Context, email, name string, purchase core.Date) (core.Date, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadItems(ctx, email)
	if err != nil {
		return core.Date{}, false, err
	}

	needle := strings.ToLower(name)
	total, n := 0, 0
	for _, rec := range records {
		have := strings.ToLower(rec.Name)
		if !strings.Contains(have, needle) && !strings.Contains(needle, have) {
			continue
		}
		from, err1 := core.ParseDate(rec.PurchaseDate)
		to, err2 := core.ParseDate(rec.ExpiryDate)
		if err1 != nil || err2 != nil {
			continue
		}
		if days := from.DaysUntil(to); days > 0 {
			total += days
			n++
		}
	}
	if n == 0 {
		return core.Date{}, false, nil
	}
	return purchase.AddDays(total / n), true, nil
}

func (rec itemRecord) toItem(email string) (core.FoodItem, error) {
	purchase, err := core.ParseDate(rec.PurchaseDate)
	if err != nil {
		return core.FoodItem{}, fmt.Errorf("parse purchase date %q: %w", rec.PurchaseDate, err)
	}
	expiry, err := core.ParseDate(rec.ExpiryDate)
	if err != nil {
		return core.FoodItem{}, fmt.Errorf("parse expiry date %q: %w", rec.ExpiryDate, err)
	}
	return core.FoodItem{
		ID:           rec.ID,
		UserEmail:    email,
		Name:         rec.Name,
		Category:     rec.Category,
		PurchaseDate: purchase,
		ExpiryDate:   expiry,
		Quantity:     rec.Quantity,
		Opened:       rec.Opened,
		AddedMethod:  core.AddedMethod(rec.AddedMethod),
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// itemsKey derives the per-user object key. Hashing keeps emails out of
// object names.
func itemsKey(email string) string {
	sum := md5.Sum([]byte(email))
	return itemsDir + hex.EncodeToString(sum[:]) + ".json"
}

func (s *Store) loadUsers(ctx context.Context) (map[string]userRecord, error) {
	users := make(map[string]userRecord)
	if err := s.getJSON(ctx, usersKey, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) saveUsers(ctx context.Context, users map[string]userRecord) error {
	return s.putJSON(ctx, usersKey, users)
}

func (s *Store) loadItems(ctx context.Context, email string) ([]itemRecord, error) {
	var records []itemRecord
	if err := s.getJSON(ctx, itemsKey(email), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) saveItems(ctx context.Context, email string, records []itemRecord) error {
	if records == nil {
		records = []itemRecord{}
	}
	return s.putJSON(ctx, itemsKey(email), records)
}

func (s *Store) nextID(ctx context.Context) (int64, error) {
	var counter idCounter
	if err := s.getJSON(ctx, counterKey, &counter); err != nil {
		return 0, err
	}
	if counter.Next == 0 {
		counter.Next = 1
	}
	id := counter.Next
	counter.Next++
	if err := s.putJSON(ctx, counterKey, counter); err != nil {
		return 0, err
	}
	return id, nil
}

// getJSON reads an object into v. A missing object leaves v untouched,
// so empty state decodes to zero values.
func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("read object %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode object %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode object %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	return errors.As(err, &noKey)
}
