package service

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/learnhub/course-marketplace/internal/model"
    "github.com/learnhub/course-marketplace/internal/repository"
)

// AccessDuration is how long a purchased enrollment stays valid.
const AccessDuration = 365 * 24 * time.Hour

// Errors reported by the enrollment service.  They describe expected
// business conditions; infrastructure failures pass through unchanged.
var (
    // ErrPurchaseNotPaid is returned when provisioning is requested for
    // a purchase that is not COMPLETED.
    ErrPurchaseNotPaid = errors.New("purchase is not completed")
    // ErrProvisioningFailed is returned only when not a single item of a
    // completed purchase could be provisioned.  Partial success is not
    // an error; the purchase itself stays COMPLETED either way and
    // provisioning can be retried independently.
    ErrProvisioningFailed = errors.New("no enrollment could be provisioned")
    // ErrAlreadyEnrolled is returned when a direct grant targets a
    // (user, course) pair that already holds a live enrollment.
    ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
    // ErrInvalidProgress is returned for a progress value outside 0-100.
    ErrInvalidProgress = errors.New("progress must be between 0 and 100")
    // ErrAlreadyRevoked is returned when revoke targets an enrollment
    // whose access is already cancelled.
    ErrAlreadyRevoked = errors.New("enrollment access already revoked")
    // ErrEnrollmentNotRevoked is returned when restore targets an
    // enrollment that is not cancelled.
    ErrEnrollmentNotRevoked = errors.New("enrollment is not revoked")
    // ErrEnrollmentExpired is returned when restore targets an
    // enrollment whose expiry has already passed.
    ErrEnrollmentExpired = errors.New("enrollment has expired")
)

// EnrollmentService turns completed purchases into course access and
// answers access checks.  It also carries the admin lifecycle of an
// enrollment: progress, revoke, restore, soft delete.
type EnrollmentService struct {
    enrollments EnrollmentStore
    purchases   PurchaseStore
    courses     CourseStore
    stats       *StatsService
}

// NewEnrollmentService constructs an EnrollmentService over the given
// stores.  stats receives the recomputation calls triggered by every
// enrollment mutation.
func NewEnrollmentService(enrollments EnrollmentStore, purchases PurchaseStore, courses CourseStore, stats *StatsService) *EnrollmentService {
    return &EnrollmentService{enrollments: enrollments, purchases: purchases, courses: courses, stats: stats}
}

// ProvisionFromPurchase creates an ACTIVE enrollment for every item of a
// completed purchase.  Items are handled independently: a live
// enrollment is reused, a vanished course is logged and skipped, and any
// other per-item failure is logged and skipped as well, so one bad item
// never blocks access to the rest of a multi-course purchase.  The call
// fails only when the purchase is missing, not paid, or when zero items
// could be provisioned.  It is safe to invoke repeatedly; replays reuse
// the enrollments the first pass created.
func (s *EnrollmentService) ProvisionFromPurchase(ctx context.Context, purchaseID uint64) ([]model.Enrollment, error) {
    purchase, err := s.purchases.GetByID(ctx, purchaseID)
    if err != nil {
        return nil, err
    }
    if purchase.Status != model.PurchaseStatusCompleted {
        return nil, ErrPurchaseNotPaid
    }
    if len(purchase.Items) == 0 {
        return nil, ErrProvisioningFailed
    }

    provisioned := make([]model.Enrollment, 0, len(purchase.Items))
    for _, item := range purchase.Items {
        e, err := s.provisionItem(ctx, purchase.UserID, item.CourseID)
        if err != nil {
            log.Printf("provision: purchase %d course %d: %v", purchaseID, item.CourseID, err)
            continue
        }
        provisioned = append(provisioned, *e)
    }
    if len(provisioned) == 0 {
        return nil, ErrProvisioningFailed
    }
    return provisioned, nil
}

// provisionItem creates or reuses the live enrollment for one purchased
// course.  The check-then-create pair races with concurrent provisioning
// of the same purchase; the duplicate-key fallback resolves that race to
// the row the other writer created.
func (s *EnrollmentService) provisionItem(ctx context.Context, userID, courseID uint64) (*model.Enrollment, error) {
    existing, err := s.enrollments.GetLiveByUserAndCourse(ctx, userID, courseID)
    if err == nil {
        return existing, nil
    }
    if !errors.Is(err, repository.ErrEnrollmentNotFound) {
        return nil, err
    }
    if _, err := s.courses.GetByID(ctx, courseID); err != nil {
        return nil, err
    }
    now := time.Now().UTC()
    expires := now.Add(AccessDuration)
    e := &model.Enrollment{
        UserID:     userID,
        CourseID:   courseID,
        EnrolledAt: now,
        ExpiresAt:  &expires,
        Progress:   0,
        Status:     model.EnrollmentStatusActive,
    }
    if err := s.enrollments.Create(ctx, e); err != nil {
        if errors.Is(err, repository.ErrDuplicateEnrollment) {
            return s.enrollments.GetLiveByUserAndCourse(ctx, userID, courseID)
        }
        return nil, err
    }
    if _, err := s.stats.RecomputeStudentCount(ctx, courseID); err != nil {
        log.Printf("provision: recompute students for course %d: %v", courseID, err)
    }
    return e, nil
}

// Grant creates an enrollment directly, outside any purchase.  A live
// enrollment for the pair, whatever its status, fails the grant with
// ErrAlreadyEnrolled; admins revoke or restore instead of re-granting.
func (s *EnrollmentService) Grant(ctx context.Context, userID, courseID uint64) (*model.Enrollment, error) {
    if _, err := s.courses.GetByID(ctx, courseID); err != nil {
        return nil, err
    }
    if _, err := s.enrollments.GetLiveByUserAndCourse(ctx, userID, courseID); err == nil {
        return nil, ErrAlreadyEnrolled
    } else if !errors.Is(err, repository.ErrEnrollmentNotFound) {
        return nil, err
    }
    now := time.Now().UTC()
    expires := now.Add(AccessDuration)
    e := &model.Enrollment{
        UserID:     userID,
        CourseID:   courseID,
        EnrolledAt: now,
        ExpiresAt:  &expires,
        Progress:   0,
        Status:     model.EnrollmentStatusActive,
    }
    if err := s.enrollments.Create(ctx, e); err != nil {
        if errors.Is(err, repository.ErrDuplicateEnrollment) {
            return nil, ErrAlreadyEnrolled
        }
        return nil, err
    }
    if _, err := s.stats.RecomputeStudentCount(ctx, courseID); err != nil {
        log.Printf("enrollment: recompute students for course %d: %v", courseID, err)
    }
    return e, nil
}

// HasActiveAccess reports whether the user currently holds valid access
// to the course: a live enrollment, status ACTIVE, and no expiry in the
// past.  Pure read; content delivery and review eligibility hang off
// this single predicate.
func (s *EnrollmentService) HasActiveAccess(ctx context.Context, userID, courseID uint64) (bool, error) {
    e, err := s.enrollments.GetLiveByUserAndCourse(ctx, userID, courseID)
    if errors.Is(err, repository.ErrEnrollmentNotFound) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    if e.Status != model.EnrollmentStatusActive {
        return false, nil
    }
    if e.Expired(time.Now().UTC()) {
        return false, nil
    }
    return true, nil
}

// IsEnrolled reports whether a live enrollment exists regardless of its
// status.  Checkout uses it to reject re-buying a held course.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, userID, courseID uint64) (bool, error) {
    _, err := s.enrollments.GetLiveByUserAndCourse(ctx, userID, courseID)
    if errors.Is(err, repository.ErrEnrollmentNotFound) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// ListUserEnrollments returns the user's live enrollments.
func (s *EnrollmentService) ListUserEnrollments(ctx context.Context, userID uint64) ([]model.Enrollment, error) {
    return s.enrollments.ListByUser(ctx, userID)
}

// GetEnrollment returns a live enrollment by its identifier.
func (s *EnrollmentService) GetEnrollment(ctx context.Context, id uint64) (*model.Enrollment, error) {
    return s.enrollments.GetByID(ctx, id)
}

// UpdateProgress sets the completion percentage of an enrollment.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, id uint64, progress int) (*model.Enrollment, error) {
    if progress < 0 || progress > 100 {
        return nil, ErrInvalidProgress
    }
    if err := s.enrollments.UpdateProgress(ctx, id, uint8(progress)); err != nil {
        return nil, err
    }
    return s.enrollments.GetByID(ctx, id)
}

// Revoke cancels an enrollment and recomputes the course's student
// count within the same operation.
func (s *EnrollmentService) Revoke(ctx context.Context, id uint64) (*model.Enrollment, error) {
    e, err := s.enrollments.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if e.Status == model.EnrollmentStatusCancelled {
        return nil, ErrAlreadyRevoked
    }
    if err := s.enrollments.UpdateStatus(ctx, id, model.EnrollmentStatusCancelled); err != nil {
        return nil, err
    }
    log.Printf("enrollment: revoked access for enrollment %d", id)
    if _, err := s.stats.RecomputeStudentCount(ctx, e.CourseID); err != nil {
        log.Printf("enrollment: recompute students for course %d: %v", e.CourseID, err)
    }
    return s.enrollments.GetByID(ctx, id)
}

// Restore reactivates a revoked enrollment.  Expired enrollments cannot
// be restored; the student count is recomputed on success.
func (s *EnrollmentService) Restore(ctx context.Context, id uint64) (*model.Enrollment, error) {
    e, err := s.enrollments.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if e.Status == model.EnrollmentStatusActive {
        return nil, ErrEnrollmentNotRevoked
    }
    if e.Expired(time.Now().UTC()) {
        return nil, ErrEnrollmentExpired
    }
    if err := s.enrollments.UpdateStatus(ctx, id, model.EnrollmentStatusActive); err != nil {
        return nil, err
    }
    if _, err := s.stats.RecomputeStudentCount(ctx, e.CourseID); err != nil {
        log.Printf("enrollment: recompute students for course %d: %v", e.CourseID, err)
    }
    return s.enrollments.GetByID(ctx, id)
}

// Delete soft-deletes an enrollment and recomputes the course's
// student count.  The row is never physically removed.
func (s *EnrollmentService) Delete(ctx context.Context, id uint64) error {
    e, err := s.enrollments.GetByID(ctx, id)
    if err != nil {
        return err
    }
    if err := s.enrollments.SoftDelete(ctx, id); err != nil {
        return err
    }
    if _, err := s.stats.RecomputeStudentCount(ctx, e.CourseID); err != nil {
        log.Printf("enrollment: recompute students for course %d: %v", e.CourseID, err)
    }
    return nil
}
