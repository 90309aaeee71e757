// Package worker drains the sync queue into the export spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expirygenie/internal/amqp"
	"expirygenie/internal/core"
	applog "expirygenie/internal/log"
	"expirygenie/internal/sheets"
	"expirygenie/internal/storage"
	"expirygenie/internal/store"
)

// ItemSource is what the worker needs from storage: row lookup and sync
// bookkeeping. The SQLite repository satisfies it.
type ItemSource interface {
	ItemByID(ctx context.Context, id int64) (core.FoodItem, error)
	GetPendingSyncItems(ctx context.Context, limit int) ([]storage.PendingSyncItem, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// ExportWorker syncs food items from local storage to the spreadsheet.
type ExportWorker struct {
	source    ItemSource
	writer    sheets.ItemWriter
	batchSize int
}

func NewExportWorker(source ItemSource, writer sheets.ItemWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		source:    source,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one queue message. Items deleted between
// publish and consume are acked and skipped.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ItemSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	item, err := w.source.ItemByID(ctx, msg.ID)
	if errors.Is(err, store.ErrItemNotFound) {
		slog.InfoContext(ctx, "Item gone before export, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get item from storage: %w", err)
	}

	return w.exportItem(ctx, item)
}

// HandleDelivery adapts raw queue bodies for amqp.Client.Consume.
func (w *ExportWorker) HandleDelivery(ctx context.Context) func([]byte) error {
	return func(body []byte) error {
		msg, err := amqp.ItemSyncMessageFromJSON(body)
		if err != nil {
			// Malformed messages would requeue forever; log and drop.
			slog.ErrorContext(ctx, "Dropping malformed sync message", "error", err)
			return nil
		}
		return w.HandleSyncMessage(ctx, msg)
	}
}

// ProcessPending exports rows still marked pending. This is the backup
// path for messages lost while the broker was down.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.source.GetPendingSyncItems(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending items: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending items", "count", len(pending))

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := w.source.ItemByID(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get pending item", "id", p.ID, "error", err)
			if err := w.source.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportItem(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending item", "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains a larger pending batch once at worker start,
// recovering from downtime.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.source.GetPendingSyncItems(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending items for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending items found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending items on startup, processing", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		item, err := w.source.ItemByID(ctx, p.ID)
		if err != nil {
			if err := w.source.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			failed++
			continue
		}
		if err := w.exportItem(ctx, item); err != nil {
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *ExportWorker) exportItem(ctx context.Context, item core.FoodItem) error {
	ref, err := w.writer.Append(ctx, item)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, item.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", item.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.source.MarkSynced(ctx, item.ID); err != nil {
		// The row landed on the sheet; only the local flag is stale.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", item.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported item",
		applog.FieldItemID, item.ID,
		applog.FieldItemName, item.Name,
		applog.FieldSheetsRef, ref)
	return nil
}
