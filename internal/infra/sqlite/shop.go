package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Store Item Operations ──────────────────────────────────────────────────

// PutItem inserts or replaces a store item.
func (db *DB) PutItem(ctx context.Context, item domain.StoreItem) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO store_items (id, name, cost, class_id, is_available)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name         = excluded.name,
			cost         = excluded.cost,
			class_id     = excluded.class_id,
			is_available = excluded.is_available
	`, item.ID, item.Name, item.Cost, item.ClassID, boolInt(item.IsAvailable))
	return err
}

// GetItem retrieves a store item by id.
func (db *DB) GetItem(ctx context.Context, id string) (*domain.StoreItem, error) {
	var item domain.StoreItem
	var available int
	err := db.db.QueryRowContext(ctx, `
		SELECT id, name, cost, class_id, is_available FROM store_items WHERE id = ?
	`, id).Scan(&item.ID, &item.Name, &item.Cost, &item.ClassID, &available)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: store item %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	item.IsAvailable = available == 1
	return &item, nil
}

// ListItemsForClass returns available items visible to a class: its own
// plus global ones (empty class scope).
func (db *DB) ListItemsForClass(ctx context.Context, classID string) ([]domain.StoreItem, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, name, cost, class_id, is_available
		FROM store_items
		WHERE is_available = 1 AND (class_id = '' OR class_id = ?)
		ORDER BY cost, name
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoreItem
	for rows.Next() {
		var item domain.StoreItem
		var available int
		if err := rows.Scan(&item.ID, &item.Name, &item.Cost, &item.ClassID, &available); err != nil {
			return nil, err
		}
		item.IsAvailable = available == 1
		out = append(out, item)
	}
	return out, rows.Err()
}

// ─── Purchase Operations ────────────────────────────────────────────────────

// CreatePurchase appends a purchase receipt.
func (db *DB) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO purchases (id, account_id, store_item_id, cost, cycle_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.AccountID, p.StoreItemID, p.Cost, p.CycleID, formatTime(p.CreatedAt))
	return err
}

// ListPurchases returns an account's receipts, newest first.
func (db *DB) ListPurchases(ctx context.Context, accountID string) ([]domain.Purchase, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, store_item_id, cost, cycle_id, created_at
		FROM purchases WHERE account_id = ? ORDER BY created_at DESC, id DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		var created string
		if err := rows.Scan(&p.ID, &p.AccountID, &p.StoreItemID, &p.Cost, &p.CycleID, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}
