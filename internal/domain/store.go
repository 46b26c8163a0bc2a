package domain

import "time"

// ─── Store Types ────────────────────────────────────────────────────────────

// StoreItem is something students can buy from the spend bucket.
// An empty ClassID means the item is global to all classes.
type StoreItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int64  `json:"cost"`
	ClassID     string `json:"class_id,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

// Purchase is an append-only receipt created by the Store Gate.
type Purchase struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	StoreItemID string    `json:"store_item_id"`
	Cost        int64     `json:"cost"`
	CycleID     string    `json:"cycle_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
