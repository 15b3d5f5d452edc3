// Package service implements the purchase ledger, the access
// provisioner, the aggregate recomputation and the access guard on top
// of narrow store interfaces.  The interfaces are defined here, on the
// consumer side, and are satisfied by the concrete repositories in
// internal/repository; tests substitute in-memory fakes.
package service

import (
    "context"

    "github.com/learnhub/course-marketplace/internal/model"
)

// PurchaseStore is the persistence surface the purchase ledger needs.
type PurchaseStore interface {
    Create(ctx context.Context, p *model.Purchase) error
    GetByID(ctx context.Context, id uint64) (*model.Purchase, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Purchase, error)
    // Confirm performs the conditional PENDING -> terminal transition and
    // reports whether this call moved the row.
    Confirm(ctx context.Context, id uint64, status model.PurchaseStatus, txnRef string) (bool, error)
}

// CourseStore is the catalog surface used for price snapshots and
// aggregate writes.
type CourseStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Course, error)
    UpdateTotalStudents(ctx context.Context, courseID uint64, total int) error
    UpdateReviewStats(ctx context.Context, courseID uint64, totalReviews int, averageRating float64) error
}

// EnrollmentStore is the persistence surface of the provisioner and the
// access guard.
type EnrollmentStore interface {
    Create(ctx context.Context, e *model.Enrollment) error
    GetByID(ctx context.Context, id uint64) (*model.Enrollment, error)
    GetLiveByUserAndCourse(ctx context.Context, userID, courseID uint64) (*model.Enrollment, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Enrollment, error)
    UpdateProgress(ctx context.Context, id uint64, progress uint8) error
    UpdateStatus(ctx context.Context, id uint64, status model.EnrollmentStatus) error
    SoftDelete(ctx context.Context, id uint64) error
    CountActiveByCourse(ctx context.Context, courseID uint64) (int, error)
}

// ReviewStore exposes the review aggregates the stats service reads.
type ReviewStore interface {
    StatsByCourse(ctx context.Context, courseID uint64) (total int, averageRating float64, err error)
}
