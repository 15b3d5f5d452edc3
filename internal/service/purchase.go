package service

import (
    "context"
    "errors"
    "fmt"
    "log"

    "github.com/shopspring/decimal"

    "github.com/learnhub/course-marketplace/internal/model"
    "github.com/learnhub/course-marketplace/internal/repository"
)

// ErrEmptyPurchase is returned when a checkout names no courses.
var ErrEmptyPurchase = errors.New("purchase has no courses")

// ConfirmOutcome tells the caller what a confirmation call actually did.
// Duplicate confirmations are an expected part of the protocol (both
// callback channels fire for every payment), so "already terminal" is an
// outcome, not an error.
type ConfirmOutcome int

const (
    // ConfirmTransitioned means this call moved the purchase from
    // PENDING to the requested terminal status.  Exactly one caller per
    // purchase observes this outcome; it is the license to run the
    // one-shot side effects (provisioning, cart clear, event publish).
    ConfirmTransitioned ConfirmOutcome = iota
    // ConfirmAlreadyTerminal means the purchase was already COMPLETED or
    // FAILED.  The stored record is returned unchanged.
    ConfirmAlreadyTerminal
    // ConfirmNotFound means no purchase exists for the identifier.
    ConfirmNotFound
)

// PurchaseService owns the purchase aggregate: creation with price
// snapshots and the idempotent terminal transition.
type PurchaseService struct {
    purchases PurchaseStore
    courses   CourseStore
}

// NewPurchaseService constructs a PurchaseService over the given stores.
func NewPurchaseService(purchases PurchaseStore, courses CourseStore) *PurchaseService {
    return &PurchaseService{purchases: purchases, courses: courses}
}

// CreatePurchase creates a PENDING purchase for the given courses.  Each
// referenced course must exist; its current catalog price is snapshotted
// into the purchase item and summed into the purchase amount, so later
// catalog changes cannot alter what this checkout charges.
func (s *PurchaseService) CreatePurchase(ctx context.Context, userID uint64, courseIDs []uint64) (*model.Purchase, error) {
    if len(courseIDs) == 0 {
        return nil, ErrEmptyPurchase
    }
    items := make([]model.PurchaseItem, 0, len(courseIDs))
    amount := decimal.Zero
    for _, courseID := range courseIDs {
        course, err := s.courses.GetByID(ctx, courseID)
        if err != nil {
            if errors.Is(err, repository.ErrCourseNotFound) {
                return nil, fmt.Errorf("course %d: %w", courseID, err)
            }
            return nil, err
        }
        items = append(items, model.PurchaseItem{CourseID: course.ID, Price: course.Price})
        amount = amount.Add(course.Price)
    }
    p := &model.Purchase{
        UserID: userID,
        Amount: amount,
        Status: model.PurchaseStatusPending,
        Items:  items,
    }
    if err := s.purchases.Create(ctx, p); err != nil {
        return nil, err
    }
    return p, nil
}

// GetPurchase returns a purchase with its items.
func (s *PurchaseService) GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error) {
    return s.purchases.GetByID(ctx, id)
}

// ListUserPurchases returns the user's purchases, newest first.
func (s *PurchaseService) ListUserPurchases(ctx context.Context, userID uint64) ([]model.Purchase, error) {
    return s.purchases.ListByUser(ctx, userID)
}

// ConfirmPurchase applies the payment outcome reported by the gateway.
// The transition is guarded by a conditional update, so concurrent
// confirmations from the two callback channels collapse into exactly one
// ConfirmTransitioned; every other caller gets ConfirmAlreadyTerminal
// and the unchanged stored record.  Once a purchase is terminal its
// outcome is frozen: a later confirmation, even with a different
// status, never rewrites it.
func (s *PurchaseService) ConfirmPurchase(ctx context.Context, id uint64, status model.PurchaseStatus, txnRef string) (ConfirmOutcome, *model.Purchase, error) {
    if !status.Terminal() {
        return 0, nil, fmt.Errorf("confirm purchase %d: %q is not a terminal status", id, status)
    }
    transitioned, err := s.purchases.Confirm(ctx, id, status, txnRef)
    if err != nil {
        return 0, nil, err
    }
    p, err := s.purchases.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrPurchaseNotFound) {
            return ConfirmNotFound, nil, nil
        }
        return 0, nil, err
    }
    if transitioned {
        log.Printf("purchase: %d confirmed as %s (txn %s)", id, status, txnRef)
        return ConfirmTransitioned, p, nil
    }
    return ConfirmAlreadyTerminal, p, nil
}
