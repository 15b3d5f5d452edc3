package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// PurchaseStatus is the lifecycle state of a purchase.  A purchase starts
// as PENDING and moves exactly once to COMPLETED or FAILED when the
// payment gateway reports the outcome.  Terminal states are never
// re-entered with a different outcome.
type PurchaseStatus string

const (
    PurchaseStatusPending   PurchaseStatus = "PENDING"
    PurchaseStatusCompleted PurchaseStatus = "COMPLETED"
    PurchaseStatusFailed    PurchaseStatus = "FAILED"
)

// Terminal reports whether the status is one of the two final states.
func (s PurchaseStatus) Terminal() bool {
    return s == PurchaseStatusCompleted || s == PurchaseStatusFailed
}

// Purchase is one checkout transaction for one or more courses.  Amount
// is the total charged through the gateway.  TransactionRef holds the
// gateway's transaction number and is set only when the purchase reaches
// a terminal state.
type Purchase struct {
    ID             uint64          `json:"id"`
    UserID         uint64          `json:"user_id"`
    Amount         decimal.Decimal `json:"amount"`
    Status         PurchaseStatus  `json:"status"`
    TransactionRef *string         `json:"transaction_ref,omitempty"`
    CreatedAt      time.Time       `json:"created_at"`
    UpdatedAt      time.Time       `json:"updated_at"`
    Items          []PurchaseItem  `json:"items"`
}

// PurchaseItem is one course line within a purchase.  Price is a
// snapshot of the course price at checkout time; later catalog price
// changes do not touch it.
type PurchaseItem struct {
    ID         uint64          `json:"id"`
    PurchaseID uint64          `json:"purchase_id"`
    CourseID   uint64          `json:"course_id"`
    Price      decimal.Decimal `json:"price"`
}
