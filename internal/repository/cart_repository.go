package repository

import (
    "context"
    "database/sql"
)

// CartRepo owns the single cart side effect this service performs:
// emptying a user's cart once their purchase completes.  Cart mutation
// endpoints live elsewhere.
type CartRepo struct {
    db *sql.DB
}

// NewCartRepo returns a new CartRepo bound to the given database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// ClearByUser removes every cart item belonging to the user.  Clearing
// an already-empty cart is a no-op, which keeps the operation safe to
// repeat if a confirmation is replayed.
func (r *CartRepo) ClearByUser(ctx context.Context, userID uint64) error {
    const q = `DELETE FROM cart_items WHERE user_id = ?`
    _, err := r.db.ExecContext(ctx, q, userID)
    return err
}
