package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expirygenie/internal/amqp"
	"expirygenie/internal/core"
	applog "expirygenie/internal/log"
)

type (
	// ReminderStore is what the scanner needs from the data backend.
	ReminderStore interface {
		Users(ctx context.Context) ([]core.User, error)
		ItemsByUser(ctx context.Context, email string) ([]core.FoodItem, error)
		// LastReminder returns the zero time when no reminder was ever
		// sent for this item and bucket.
		LastReminder(ctx context.Context, itemID int64, bucket string) (time.Time, error)
		LogReminder(ctx context.Context, email string, itemID int64, bucket string) error
	}

	// ReminderPublisher delivers reminder messages. The AMQP client
	// satisfies it.
	ReminderPublisher interface {
		PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
	}
)

// ReminderProcessor walks every inventory, buckets items by expiry and
// publishes reminders according to each bucket's cadence.
type ReminderProcessor struct {
	store      ReminderStore
	publisher  ReminderPublisher
	soonWindow int
	now        func() time.Time
}

// NewReminderProcessor builds a scanner. soonDays is the number of days
// ahead of expiry that counts as "Expiring Soon"; zero or negative
// means the default window.
func NewReminderProcessor(store ReminderStore, publisher ReminderPublisher, soonDays int) *ReminderProcessor {
	if soonDays <= 0 {
		soonDays = core.SoonWindowDays
	}
	return &ReminderProcessor{
		store:      store,
		publisher:  publisher,
		soonWindow: soonDays,
		now:        time.Now,
	}
}

// Run performs one scan over all users. It keeps going on per-item
// errors and returns how many reminders were published.
func (p *ReminderProcessor) Run(ctx context.Context) (int, error) {
	users, err := p.store.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	now := p.now()
	today := core.DateOf(now)
	published := 0

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		items, err := p.store.ItemsByUser(ctx, user.Email)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load items for reminder scan",
				applog.FieldUserEmail, user.Email, applog.FieldError, err)
			continue
		}

		for _, item := range items {
			sent, err := p.remindItem(ctx, user.Email, item, today, now)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to process reminder",
					applog.FieldUserEmail, user.Email, applog.FieldItemID, item.ID, applog.FieldError, err)
				continue
			}
			if sent {
				published++
			}
		}
	}

	slog.InfoContext(ctx, "Reminder scan completed",
		"users", len(users), "published", published)
	return published, nil
}

func (p *ReminderProcessor) remindItem(ctx context.Context, email string, item core.FoodItem, today core.Date, now time.Time) (bool, error) {
	bucket := core.StatusWithin(item.ExpiryDate, today, p.soonWindow)

	checker, err := GetCadenceChecker(bucket)
	if err != nil {
		return false, err
	}

	lastSent, err := p.store.LastReminder(ctx, item.ID, string(bucket))
	if err != nil {
		return false, fmt.Errorf("check reminder log: %w", err)
	}
	if !checker.IsDue(lastSent, now) {
		return false, nil
	}

	msg := &amqp.ReminderMessage{
		UserEmail:  email,
		ItemID:     item.ID,
		ItemName:   item.Name,
		Bucket:     string(bucket),
		ExpiryDate: item.ExpiryDate.String(),
		Timestamp:  now,
	}
	if err := p.publisher.PublishReminder(ctx, msg); err != nil {
		return false, fmt.Errorf("publish reminder: %w", err)
	}

	if err := p.store.LogReminder(ctx, email, item.ID, string(bucket)); err != nil {
		// The reminder went out; a failed log entry only risks one
		// duplicate next scan.
		slog.WarnContext(ctx, "Failed to log reminder",
			applog.FieldItemID, item.ID, applog.FieldBucket, bucket, applog.FieldError, err)
	}
	return true, nil
}
