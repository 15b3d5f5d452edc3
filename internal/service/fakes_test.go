package service

import (
    "context"
    "sync"
    "time"

    "github.com/learnhub/course-marketplace/internal/model"
    "github.com/learnhub/course-marketplace/internal/repository"
)

// fakePurchaseStore keeps purchases in a map guarded by a mutex so the
// conditional Confirm transition can be exercised from concurrent
// goroutines the same way the SQL row lock serializes it.
type fakePurchaseStore struct {
    mu        sync.Mutex
    nextID    uint64
    purchases map[uint64]*model.Purchase

    confirmErr error
}

func newFakePurchaseStore() *fakePurchaseStore {
    return &fakePurchaseStore{nextID: 1, purchases: map[uint64]*model.Purchase{}}
}

func (f *fakePurchaseStore) Create(_ context.Context, p *model.Purchase) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    p.ID = f.nextID
    f.nextID++
    now := time.Now().UTC()
    p.CreatedAt = now
    p.UpdatedAt = now
    for i := range p.Items {
        p.Items[i].ID = uint64(i + 1)
        p.Items[i].PurchaseID = p.ID
    }
    cp := clonePurchase(p)
    f.purchases[p.ID] = &cp
    return nil
}

func (f *fakePurchaseStore) GetByID(_ context.Context, id uint64) (*model.Purchase, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    p, ok := f.purchases[id]
    if !ok {
        return nil, repository.ErrPurchaseNotFound
    }
    cp := clonePurchase(p)
    return &cp, nil
}

func (f *fakePurchaseStore) ListByUser(_ context.Context, userID uint64) ([]model.Purchase, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Purchase
    for _, p := range f.purchases {
        if p.UserID == userID {
            out = append(out, clonePurchase(p))
        }
    }
    return out, nil
}

func (f *fakePurchaseStore) Confirm(_ context.Context, id uint64, status model.PurchaseStatus, txnRef string) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.confirmErr != nil {
        return false, f.confirmErr
    }
    p, ok := f.purchases[id]
    if !ok || p.Status != model.PurchaseStatusPending {
        return false, nil
    }
    p.Status = status
    ref := txnRef
    p.TransactionRef = &ref
    p.UpdatedAt = time.Now().UTC()
    return true, nil
}

// setStatus force-sets a purchase status, bypassing the transition guard.
func (f *fakePurchaseStore) setStatus(id uint64, status model.PurchaseStatus) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.purchases[id].Status = status
}

func clonePurchase(p *model.Purchase) model.Purchase {
    cp := *p
    cp.Items = append([]model.PurchaseItem(nil), p.Items...)
    return cp
}

// fakeEnrollmentStore mirrors the live-row semantics of the MySQL
// repository: soft-deleted rows are invisible to every read, and Create
// refuses a second live row per (user, course).
type fakeEnrollmentStore struct {
    mu          sync.Mutex
    nextID      uint64
    enrollments map[uint64]*model.Enrollment

    createErrs   map[uint64]error // per-course Create failure injection
    hideLiveOnce bool             // makes the next live lookup miss, to stage the create race
}

func newFakeEnrollmentStore() *fakeEnrollmentStore {
    return &fakeEnrollmentStore{nextID: 1, enrollments: map[uint64]*model.Enrollment{}, createErrs: map[uint64]error{}}
}

func (f *fakeEnrollmentStore) Create(_ context.Context, e *model.Enrollment) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if err := f.createErrs[e.CourseID]; err != nil {
        return err
    }
    for _, cur := range f.enrollments {
        if cur.DeletedAt == nil && cur.UserID == e.UserID && cur.CourseID == e.CourseID {
            return repository.ErrDuplicateEnrollment
        }
    }
    e.ID = f.nextID
    f.nextID++
    now := time.Now().UTC()
    e.CreatedAt = now
    e.UpdatedAt = now
    cp := *e
    f.enrollments[e.ID] = &cp
    return nil
}

func (f *fakeEnrollmentStore) GetByID(_ context.Context, id uint64) (*model.Enrollment, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.enrollments[id]
    if !ok || e.DeletedAt != nil {
        return nil, repository.ErrEnrollmentNotFound
    }
    cp := *e
    return &cp, nil
}

func (f *fakeEnrollmentStore) GetLiveByUserAndCourse(_ context.Context, userID, courseID uint64) (*model.Enrollment, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.hideLiveOnce {
        f.hideLiveOnce = false
        return nil, repository.ErrEnrollmentNotFound
    }
    for _, e := range f.enrollments {
        if e.DeletedAt == nil && e.UserID == userID && e.CourseID == courseID {
            cp := *e
            return &cp, nil
        }
    }
    return nil, repository.ErrEnrollmentNotFound
}

func (f *fakeEnrollmentStore) ListByUser(_ context.Context, userID uint64) ([]model.Enrollment, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Enrollment
    for _, e := range f.enrollments {
        if e.DeletedAt == nil && e.UserID == userID {
            out = append(out, *e)
        }
    }
    return out, nil
}

func (f *fakeEnrollmentStore) UpdateProgress(_ context.Context, id uint64, progress uint8) error {
    return f.mutate(id, func(e *model.Enrollment) { e.Progress = progress })
}

func (f *fakeEnrollmentStore) UpdateStatus(_ context.Context, id uint64, status model.EnrollmentStatus) error {
    return f.mutate(id, func(e *model.Enrollment) { e.Status = status })
}

func (f *fakeEnrollmentStore) SoftDelete(_ context.Context, id uint64) error {
    now := time.Now().UTC()
    return f.mutate(id, func(e *model.Enrollment) { e.DeletedAt = &now })
}

func (f *fakeEnrollmentStore) CountActiveByCourse(_ context.Context, courseID uint64) (int, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    n := 0
    for _, e := range f.enrollments {
        if e.DeletedAt == nil && e.CourseID == courseID && e.Status == model.EnrollmentStatusActive {
            n++
        }
    }
    return n, nil
}

func (f *fakeEnrollmentStore) mutate(id uint64, fn func(*model.Enrollment)) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.enrollments[id]
    if !ok || e.DeletedAt != nil {
        return repository.ErrEnrollmentNotFound
    }
    fn(e)
    e.UpdatedAt = time.Now().UTC()
    return nil
}

// fakeCourseStore holds the catalog rows and records aggregate writes.
type fakeCourseStore struct {
    mu      sync.Mutex
    courses map[uint64]*model.Course
}

func newFakeCourseStore(courses ...*model.Course) *fakeCourseStore {
    f := &fakeCourseStore{courses: map[uint64]*model.Course{}}
    for _, c := range courses {
        f.courses[c.ID] = c
    }
    return f
}

func (f *fakeCourseStore) GetByID(_ context.Context, id uint64) (*model.Course, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    c, ok := f.courses[id]
    if !ok {
        return nil, repository.ErrCourseNotFound
    }
    cp := *c
    return &cp, nil
}

func (f *fakeCourseStore) UpdateTotalStudents(_ context.Context, courseID uint64, total int) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    c, ok := f.courses[courseID]
    if !ok {
        return repository.ErrCourseNotFound
    }
    c.TotalStudents = total
    return nil
}

func (f *fakeCourseStore) UpdateReviewStats(_ context.Context, courseID uint64, totalReviews int, averageRating float64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    c, ok := f.courses[courseID]
    if !ok {
        return repository.ErrCourseNotFound
    }
    c.TotalReviews = totalReviews
    c.AverageRating = averageRating
    return nil
}

func (f *fakeCourseStore) totalStudents(courseID uint64) int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.courses[courseID].TotalStudents
}

// fakeReviewStore answers StatsByCourse from a fixed table.
type fakeReviewStore struct {
    totals map[uint64]int
    avgs   map[uint64]float64
}

func (f *fakeReviewStore) StatsByCourse(_ context.Context, courseID uint64) (int, float64, error) {
    return f.totals[courseID], f.avgs[courseID], nil
}
