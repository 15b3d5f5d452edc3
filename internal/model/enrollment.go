package model

import "time"

// EnrollmentStatus is the lifecycle state of a user's access to a course.
type EnrollmentStatus string

const (
    EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
    EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
    EnrollmentStatusExpired   EnrollmentStatus = "EXPIRED"
    EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment is a user's entitlement record for a single course.  At most
// one live (non soft-deleted) enrollment exists per (user, course) pair.
// Enrollments are soft-deleted by admin deletion, never removed from the
// table, so DeletedAt acts as the liveness discriminator.
type Enrollment struct {
    ID         uint64           `json:"id"`
    UserID     uint64           `json:"user_id"`
    CourseID   uint64           `json:"course_id"`
    EnrolledAt time.Time        `json:"enrolled_at"`
    ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
    Progress   uint8            `json:"progress"`
    Status     EnrollmentStatus `json:"status"`
    CreatedAt  time.Time        `json:"created_at"`
    UpdatedAt  time.Time        `json:"updated_at"`
    DeletedAt  *time.Time       `json:"-"`
}

// Expired reports whether the enrollment carries an expiry in the past.
// An enrollment without an expiry never expires.
func (e *Enrollment) Expired(now time.Time) bool {
    return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}
