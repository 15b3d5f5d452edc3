package repository

import (
    "context"
    "database/sql"

    "github.com/learnhub/course-marketplace/internal/model"
)

// PurchaseRepo provides persistence for purchases and their items.
// A purchase and its items form one aggregate: items are inserted
// atomically with the purchase and are never mutated afterwards.
// All timestamp fields are stored in UTC.
type PurchaseRepo struct {
    db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// Create inserts a purchase together with its items in a single
// transaction.  It populates the generated ID and the DB-assigned
// timestamps on the provided record.  The caller is expected to have
// set Status, Amount and the item price snapshots already.
func (r *PurchaseRepo) Create(ctx context.Context, p *model.Purchase) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const q = `INSERT INTO purchases (user_id, amount, status) VALUES (?, ?, ?)`
    result, err := tx.ExecContext(ctx, q, p.UserID, p.Amount, p.Status)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)

    if len(p.Items) > 0 {
        query := `INSERT INTO purchase_items (purchase_id, course_id, price) VALUES `
        args := make([]interface{}, 0, len(p.Items)*3)
        for i := range p.Items {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?)"
            p.Items[i].PurchaseID = p.ID
            args = append(args, p.ID, p.Items[i].CourseID, p.Items[i].Price)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }

    // Query back the row to populate timestamps and defaults
    const sel = `SELECT created_at, updated_at FROM purchases WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns a purchase with its items.  When no purchase with the
// specified ID exists, ErrPurchaseNotFound is returned.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (*model.Purchase, error) {
    const q = `SELECT id, user_id, amount, status, transaction_ref, created_at, updated_at
               FROM purchases WHERE id = ?`
    var p model.Purchase
    var txnRef sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &p.ID, &p.UserID, &p.Amount, &p.Status, &txnRef, &p.CreatedAt, &p.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrPurchaseNotFound
    }
    if err != nil {
        return nil, err
    }
    if txnRef.Valid {
        ref := txnRef.String
        p.TransactionRef = &ref
    }
    items, err := r.itemsByPurchase(ctx, p.ID)
    if err != nil {
        return nil, err
    }
    p.Items = items
    return &p, nil
}

// ListByUser returns all purchases belonging to a user, newest first,
// with their items populated.  An empty slice is returned when the user
// has no purchases.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Purchase, error) {
    const q = `SELECT id, user_id, amount, status, transaction_ref, created_at, updated_at
               FROM purchases WHERE user_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    purchases := make([]model.Purchase, 0)
    for rows.Next() {
        var p model.Purchase
        var txnRef sql.NullString
        if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Status, &txnRef, &p.CreatedAt, &p.UpdatedAt); err != nil {
            return nil, err
        }
        if txnRef.Valid {
            ref := txnRef.String
            p.TransactionRef = &ref
        }
        purchases = append(purchases, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range purchases {
        items, err := r.itemsByPurchase(ctx, purchases[i].ID)
        if err != nil {
            return nil, err
        }
        purchases[i].Items = items
    }
    return purchases, nil
}

// Confirm performs the single guarded write of the pipeline: the
// conditional transition from PENDING to a terminal status.  It returns
// true only when this call performed the transition.  Two concurrent
// confirmations for the same purchase therefore see exactly one true,
// which is what gates provisioning and the cart clear.  A false return
// with a nil error means the purchase was missing or already terminal;
// the caller distinguishes the two by re-reading the row.
func (r *PurchaseRepo) Confirm(ctx context.Context, id uint64, status model.PurchaseStatus, txnRef string) (bool, error) {
    const q = `UPDATE purchases
               SET status = ?, transaction_ref = ?, updated_at = NOW()
               WHERE id = ? AND status = ?`
    result, err := r.db.ExecContext(ctx, q, status, txnRef, id, model.PurchaseStatusPending)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

func (r *PurchaseRepo) itemsByPurchase(ctx context.Context, purchaseID uint64) ([]model.PurchaseItem, error) {
    const q = `SELECT id, purchase_id, course_id, price
               FROM purchase_items WHERE purchase_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, purchaseID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    items := make([]model.PurchaseItem, 0)
    for rows.Next() {
        var it model.PurchaseItem
        if err := rows.Scan(&it.ID, &it.PurchaseID, &it.CourseID, &it.Price); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return items, nil
}
