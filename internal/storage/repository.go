// Package storage is the SQLite data backend. Writes land here first;
// the sync worker drains rows marked pending into the export sheet.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expirygenie/internal/core"
	applog "expirygenie/internal/log"
	"expirygenie/internal/store"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ store.Backend         = (*SQLiteRepository)(nil)
	_ store.ExpiryPredictor = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		u.Email, u.Name, u.PasswordHash)
	if err != nil {
		if isConstraintErr(err) {
			return store.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", applog.FieldUserEmail, u.Email)
	return nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT email, name, password_hash, money_saved_cents, created_at
		 FROM users WHERE email = ?`, email).
		Scan(&u.Email, &u.Name, &u.PasswordHash, &u.MoneySavedCents, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE email = ?`, passwordHash, email)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return oneRowOr(res, store.ErrUserNotFound)
}

func (r *SQLiteRepository) AddMoneySaved(ctx context.Context, email string, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET money_saved_cents = money_saved_cents + ? WHERE email = ?`,
		deltaCents, email)
	if err != nil {
		return fmt.Errorf("add money saved: %w", err)
	}
	return oneRowOr(res, store.ErrUserNotFound)
}

func (r *SQLiteRepository) AddItem(ctx context.Context, item core.FoodItem) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO food_items (user_email, name, category, purchase_date, expiry_date, quantity, opened, added_method)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.UserEmail, item.Name, item.Category,
		item.PurchaseDate.String(), item.ExpiryDate.String(),
		item.Quantity, boolToInt(item.Opened), string(item.AddedMethod))
	if err != nil {
		return 0, fmt.Errorf("insert food item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("item insert id: %w", err)
	}

	slog.InfoContext(ctx, "Food item saved to SQLite",
		applog.FieldItemID, id,
		applog.FieldItemName, item.Name,
		applog.FieldCategory, item.Category,
		applog.FieldExpiryDate, item.ExpiryDate.String(),
		applog.FieldAddedMethod, item.AddedMethod)

	return id, nil
}

func (r *SQLiteRepository) ItemsByUser(ctx context.Context, email string) ([]core.FoodItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_email, name, category, purchase_date, expiry_date, quantity, opened, added_method, created_at
		 FROM food_items WHERE user_email = ? ORDER BY expiry_date, id`, email)
	if err != nil {
		return nil, fmt.Errorf("list food items: %w", err)
	}
	defer rows.Close()

	var items []core.FoodItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) UpdateItemDetails(ctx context.Context, id int64, email, name, quantity string, opened bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE food_items
		 SET name = ?, quantity = ?, opened = ?,
		     sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_email = ?`,
		name, quantity, boolToInt(opened), id, email)
	if err != nil {
		return fmt.Errorf("update item details: %w", err)
	}
	return oneRowOr(res, store.ErrItemNotFound)
}

func (r *SQLiteRepository) UpdateItemDate(ctx context.Context, id int64, email string, field store.DateField, date core.Date) error {
	if !field.Valid() {
		return fmt.Errorf("unsupported date field: %s", field)
	}

	// field is one of two known column names, never user input.
	q := fmt.Sprintf(
		`UPDATE food_items
		 SET %s = ?, sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_email = ?`, field)
	res, err := r.db.ExecContext(ctx, q, date.String(), id, email)
	if err != nil {
		return fmt.Errorf("update item %s: %w", field, err)
	}
	return oneRowOr(res, store.ErrItemNotFound)
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id int64, email string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM food_items WHERE id = ? AND user_email = ?`, id, email)
	if err != nil {
		return fmt.Errorf("delete food item: %w", err)
	}
	return oneRowOr(res, store.ErrItemNotFound)
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, email string, today core.Date) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM food_items WHERE user_email = ? AND expiry_date < ?`,
		email, today.String())
	if err != nil {
		return 0, fmt.Errorf("delete expired items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired rows affected: %w", err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "Expired items cleared", "email", email, "count", n)
	}
	return int(n), nil
}

// PredictExpiry averages how long items with the same name lasted in
// the user's history and projects that span from the purchase date.
func (r *SQLiteRepository) PredictExpiry(ctx context.Context, email, name string, purchase core.Date) (core.Date, bool, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT AVG(JULIANDAY(expiry_date) - JULIANDAY(purchase_date))
		 FROM food_items
		 WHERE user_email = ?
		   AND (INSTR(LOWER(name), LOWER(?)) > 0 OR INSTR(LOWER(?), LOWER(name)) > 0)
		   AND JULIANDAY(expiry_date) > JULIANDAY(purchase_date)`,
		email, name, name).Scan(&avg)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("predict expiry: %w", err)
	}
	if !avg.Valid || avg.Float64 <= 0 {
		return core.Date{}, false, nil
	}
	return purchase.AddDays(int(avg.Float64)), true, nil
}

// Users lists every account. Used by the reminder scanner, which walks
// all inventories.
func (r *SQLiteRepository) Users(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, name, password_hash, money_saved_cents, created_at FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.Email, &u.Name, &u.PasswordHash, &u.MoneySavedCents, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// PendingSyncItem is the minimal row the sync queue message carries.
type PendingSyncItem struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncItems returns items still waiting for export.
func (r *SQLiteRepository) GetPendingSyncItems(ctx context.Context, limit int) ([]PendingSyncItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM food_items
		 WHERE sync_status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync items: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncItem
	for rows.Next() {
		var p PendingSyncItem
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync item: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// ItemByID fetches a single item regardless of owner. Used by the sync
// worker, which handles items for every user.
func (r *SQLiteRepository) ItemByID(ctx context.Context, id int64) (core.FoodItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_email, name, category, purchase_date, expiry_date, quantity, opened, added_method, created_at
		 FROM food_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FoodItem{}, store.ErrItemNotFound
	}
	return item, err
}

// MarkSynced marks an item as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE food_items SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark item synced: %w", err)
	}
	slog.InfoContext(ctx, "Item marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an item as having failed export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE food_items SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark item sync error: %w", err)
	}
	slog.WarnContext(ctx, "Item marked with sync error", "id", id)
	return nil
}

// LogReminder records that a reminder went out for an item in a bucket.
func (r *SQLiteRepository) LogReminder(ctx context.Context, email string, itemID int64, bucket string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO reminder_log (user_email, item_id, bucket) VALUES (?, ?, ?)`,
		email, itemID, bucket); err != nil {
		return fmt.Errorf("log reminder: %w", err)
	}
	return nil
}

// LastReminder returns when the most recent reminder for this item and
// bucket went out, or the zero time if none did.
func (r *SQLiteRepository) LastReminder(ctx context.Context, itemID int64, bucket string) (time.Time, error) {
	var last time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT sent_at FROM reminder_log WHERE item_id = ? AND bucket = ? ORDER BY sent_at DESC LIMIT 1`,
		itemID, bucket).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("check reminder log: %w", err)
	}
	return last, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (core.FoodItem, error) {
	var (
		item                core.FoodItem
		purchaseStr, expStr string
		opened              int64
		method              string
	)
	err := row.Scan(&item.ID, &item.UserEmail, &item.Name, &item.Category,
		&purchaseStr, &expStr, &item.Quantity, &opened, &method, &item.CreatedAt)
	if err != nil {
		return core.FoodItem{}, err
	}

	if item.PurchaseDate, err = core.ParseDate(purchaseStr); err != nil {
		return core.FoodItem{}, fmt.Errorf("parse purchase date %q: %w", purchaseStr, err)
	}
	if item.ExpiryDate, err = core.ParseDate(expStr); err != nil {
		return core.FoodItem{}, fmt.Errorf("parse expiry date %q: %w", expStr, err)
	}
	item.Opened = opened != 0
	item.AddedMethod = core.AddedMethod(method)
	return item, nil
}

func oneRowOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isConstraintErr(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlitelib.SQLITE_CONSTRAINT,
			sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY,
			sqlitelib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
