package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"expirygenie/internal/amqp"
	"expirygenie/internal/core"
	"expirygenie/internal/storage"
	"expirygenie/internal/store"
)

type fakeSource struct {
	items     map[int64]core.FoodItem
	pending   []storage.PendingSyncItem
	synced    []int64
	syncError []int64
}

func (f *fakeSource) ItemByID(_ context.Context, id int64) (core.FoodItem, error) {
	item, ok := f.items[id]
	if !ok {
		return core.FoodItem{}, store.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeSource) GetPendingSyncItems(_ context.Context, limit int) ([]storage.PendingSyncItem, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeSource) MarkSynced(_ context.Context, id int64) error {
	f.synced = append(f.synced, id)
	return nil
}

func (f *fakeSource) MarkSyncError(_ context.Context, id int64) error {
	f.syncError = append(f.syncError, id)
	return nil
}

type fakeWriter struct {
	appended []core.FoodItem
	err      error
}

func (f *fakeWriter) Append(_ context.Context, item core.FoodItem) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, item)
	return fmt.Sprintf("Inventory!A%d", len(f.appended)), nil
}

func testItem(id int64) core.FoodItem {
	return core.FoodItem{
		ID:           id,
		UserEmail:    "ana@example.com",
		Name:         "Milk",
		Category:     "Dairy",
		PurchaseDate: core.NewDate(2025, 6, 1),
		ExpiryDate:   core.NewDate(2025, 6, 8),
		Quantity:     "1",
		AddedMethod:  core.MethodManual,
	}
}

func TestHandleSyncMessage(t *testing.T) {
	source := &fakeSource{items: map[int64]core.FoodItem{7: testItem(7)}}
	writer := &fakeWriter{}
	w := NewExportWorker(source, writer, 10)

	msg := amqp.NewItemSyncMessage(7, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	if len(writer.appended) != 1 || writer.appended[0].ID != 7 {
		t.Errorf("appended = %+v, want item 7", writer.appended)
	}
	if len(source.synced) != 1 || source.synced[0] != 7 {
		t.Errorf("synced = %v, want [7]", source.synced)
	}
}

func TestHandleSyncMessageMissingItem(t *testing.T) {
	source := &fakeSource{items: map[int64]core.FoodItem{}}
	writer := &fakeWriter{}
	w := NewExportWorker(source, writer, 10)

	// Deleted before the worker got to it: ack and move on.
	if err := w.HandleSyncMessage(context.Background(), amqp.NewItemSyncMessage(99, 1)); err != nil {
		t.Fatalf("HandleSyncMessage(missing) error = %v, want nil", err)
	}
	if len(writer.appended) != 0 {
		t.Errorf("appended = %+v, want empty", writer.appended)
	}
}

func TestHandleSyncMessageWriterError(t *testing.T) {
	source := &fakeSource{items: map[int64]core.FoodItem{7: testItem(7)}}
	writer := &fakeWriter{err: errors.New("sheets unavailable")}
	w := NewExportWorker(source, writer, 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewItemSyncMessage(7, 1))
	if err == nil {
		t.Fatal("HandleSyncMessage() error = nil, want error")
	}
	if len(source.syncError) != 1 || source.syncError[0] != 7 {
		t.Errorf("syncError = %v, want [7]", source.syncError)
	}
}

func TestHandleDeliveryMalformed(t *testing.T) {
	w := NewExportWorker(&fakeSource{}, &fakeWriter{}, 10)

	handler := w.HandleDelivery(context.Background())
	if err := handler([]byte("not json")); err != nil {
		t.Errorf("handler(malformed) error = %v, want nil (drop, not requeue)", err)
	}
}

func TestProcessPending(t *testing.T) {
	source := &fakeSource{
		items: map[int64]core.FoodItem{
			1: testItem(1),
			3: testItem(3),
		},
		pending: []storage.PendingSyncItem{{ID: 1}, {ID: 2}, {ID: 3}},
	}
	writer := &fakeWriter{}
	w := NewExportWorker(source, writer, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	if len(writer.appended) != 2 {
		t.Errorf("appended %d items, want 2", len(writer.appended))
	}
	// Item 2 is missing from storage and gets marked as errored.
	if len(source.syncError) != 1 || source.syncError[0] != 2 {
		t.Errorf("syncError = %v, want [2]", source.syncError)
	}
}
