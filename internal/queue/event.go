// Package queue defines message payloads exchanged over the message broker.
package queue

// PurchaseCompletedEvent is published when a purchase reaches COMPLETED.
// It carries enough information for downstream consumers to log, notify,
// or feed analytics without querying the primary database.
type PurchaseCompletedEvent struct {
    PurchaseID     uint64   `json:"purchase_id"`
    UserID         uint64   `json:"user_id"`
    Amount         string   `json:"amount"`
    TransactionRef string   `json:"transaction_ref"`
    CourseIDs      []uint64 `json:"course_ids"`
    CompletedAt    string   `json:"completed_at"`
}
