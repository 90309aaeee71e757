// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"expirygenie/internal/core"
	applog "expirygenie/internal/log"
	"expirygenie/internal/store"
)

// SyncPublisher enqueues export requests for changed items. The AMQP
// client satisfies it.
type SyncPublisher interface {
	PublishItemSync(ctx context.Context, id, version int64) error
}

// ItemService orchestrates item writes: the backend is the source of
// truth, sync messages are best-effort and never fail a request.
type ItemService struct {
	backend   store.Backend
	predictor store.ExpiryPredictor
	publisher SyncPublisher
}

func NewItemService(backend store.Backend, predictor store.ExpiryPredictor, publisher SyncPublisher) *ItemService {
	return &ItemService{
		backend:   backend,
		predictor: predictor,
		publisher: publisher,
	}
}

// AddItem fills in what the caller left blank, validates and saves.
// Blank category is derived from the name, blank expiry from the shelf
// life estimate (preferring the user's own history when available).
func (s *ItemService) AddItem(ctx context.Context, item core.FoodItem) (int64, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Category == "" {
		item.Category = core.Categorize(item.Name)
	}
	if item.Quantity == "" {
		item.Quantity = "1"
	}
	if item.AddedMethod == "" {
		item.AddedMethod = core.MethodManual
	}
	if item.PurchaseDate.IsZero() {
		item.PurchaseDate = core.Today()
	}
	if item.ExpiryDate.IsZero() {
		item.ExpiryDate = s.estimateExpiry(ctx, item)
	}

	if err := item.Validate(); err != nil {
		return 0, err
	}

	id, err := s.backend.AddItem(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("save item: %w", err)
	}

	s.publishSync(ctx, id, 1)
	return id, nil
}

func (s *ItemService) estimateExpiry(ctx context.Context, item core.FoodItem) core.Date {
	if s.predictor != nil {
		d, ok, err := s.predictor.PredictExpiry(ctx, item.UserEmail, item.Name, item.PurchaseDate)
		if err != nil {
			slog.WarnContext(ctx, "Expiry prediction failed, using shelf life estimate",
				applog.FieldItemName, item.Name, applog.FieldError, err)
		} else if ok {
			return d
		}
	}
	return core.EstimateExpiry(item.Name, item.PurchaseDate, item.Opened)
}

func (s *ItemService) Items(ctx context.Context, email string) ([]core.FoodItem, error) {
	return s.backend.ItemsByUser(ctx, email)
}

func (s *ItemService) UpdateDetails(ctx context.Context, id int64, email, name, quantity string, opened bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	if quantity == "" {
		quantity = "1"
	}
	if err := s.backend.UpdateItemDetails(ctx, id, email, name, quantity, opened); err != nil {
		return err
	}
	s.publishSync(ctx, id, 0)
	return nil
}

func (s *ItemService) UpdateDate(ctx context.Context, id int64, email string, field store.DateField, date core.Date) error {
	if err := s.backend.UpdateItemDate(ctx, id, email, field, date); err != nil {
		return err
	}
	s.publishSync(ctx, id, 0)
	return nil
}

func (s *ItemService) DeleteItem(ctx context.Context, id int64, email string) error {
	return s.backend.DeleteItem(ctx, id, email)
}

// ConsumeItem removes an item that was eaten. Consuming before expiry
// credits the estimated value to the user's money-saved counter.
func (s *ItemService) ConsumeItem(ctx context.Context, id int64, email string, today core.Date) error {
	items, err := s.backend.ItemsByUser(ctx, email)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	var found *core.FoodItem
	for i := range items {
		if items[i].ID == id {
			found = &items[i]
			break
		}
	}
	if found == nil {
		return store.ErrItemNotFound
	}

	if err := s.backend.DeleteItem(ctx, id, email); err != nil {
		return err
	}

	if core.StatusOn(found.ExpiryDate, today) != core.StatusExpired {
		saved := core.EstimateValueCents(found.Name, found.Quantity)
		if err := s.backend.AddMoneySaved(ctx, email, saved); err != nil {
			slog.WarnContext(ctx, "Failed to credit money saved",
				applog.FieldUserEmail, email, applog.FieldItemID, id, applog.FieldError, err)
		}
	}
	return nil
}

func (s *ItemService) DeleteExpired(ctx context.Context, email string, today core.Date) (int, error) {
	return s.backend.DeleteExpired(ctx, email, today)
}

func (s *ItemService) publishSync(ctx context.Context, id, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishItemSync(ctx, id, version); err != nil {
		// The backend write already succeeded; the poll sweeper will
		// pick the row up later.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			applog.FieldItemID, id, applog.FieldError, err)
	}
}
