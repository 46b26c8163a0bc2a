package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Policy Operations ──────────────────────────────────────────────────────

// GetPolicy retrieves a class's economy policy.
func (db *DB) GetPolicy(ctx context.Context, classID string) (*domain.ClassPolicy, error) {
	var p domain.ClassPolicy
	var storeEnabled, storeLocked, autoSplit int
	var minSave sql.NullInt64
	err := db.db.QueryRowContext(ctx, `
		SELECT class_id, store_enabled, store_locked, auto_split_enabled,
			save_ratio, spend_ratio, min_save_pct, cycle_length_days
		FROM class_policies WHERE class_id = ?
	`, classID).Scan(&p.ClassID, &storeEnabled, &storeLocked, &autoSplit,
		&p.SaveRatio, &p.SpendRatio, &minSave, &p.CycleLengthDays)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: policy for class %s", domain.ErrNotFound, classID)
	}
	if err != nil {
		return nil, err
	}
	p.StoreEnabled = storeEnabled == 1
	p.StoreLocked = storeLocked == 1
	p.AutoSplitEnabled = autoSplit == 1
	if minSave.Valid {
		v := int(minSave.Int64)
		p.MinSavePct = &v
	}
	return &p, nil
}

// PutPolicy inserts or replaces a class's policy.
func (db *DB) PutPolicy(ctx context.Context, p domain.ClassPolicy) error {
	var minSave interface{}
	if p.MinSavePct != nil {
		minSave = *p.MinSavePct
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO class_policies (class_id, store_enabled, store_locked,
			auto_split_enabled, save_ratio, spend_ratio, min_save_pct, cycle_length_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(class_id) DO UPDATE SET
			store_enabled      = excluded.store_enabled,
			store_locked       = excluded.store_locked,
			auto_split_enabled = excluded.auto_split_enabled,
			save_ratio         = excluded.save_ratio,
			spend_ratio        = excluded.spend_ratio,
			min_save_pct       = excluded.min_save_pct,
			cycle_length_days  = excluded.cycle_length_days
	`, p.ClassID, boolInt(p.StoreEnabled), boolInt(p.StoreLocked),
		boolInt(p.AutoSplitEnabled), p.SaveRatio, p.SpendRatio, minSave, p.CycleLengthDays)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
