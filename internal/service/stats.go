package service

import "context"

// StatsService recomputes the denormalized aggregates on a course from
// their authoritative source rows.  Each recompute is a full
// read-then-overwrite, never an increment, so calling it redundantly or
// out of order always converges on the true value.  Callers invoke it
// synchronously inside the operation that changed the source rows,
// which bounds staleness to at most one in-flight request.
type StatsService struct {
    enrollments EnrollmentStore
    reviews     ReviewStore
    courses     CourseStore
}

// NewStatsService constructs a StatsService over the given stores.
func NewStatsService(enrollments EnrollmentStore, reviews ReviewStore, courses CourseStore) *StatsService {
    return &StatsService{enrollments: enrollments, reviews: reviews, courses: courses}
}

// RecomputeStudentCount counts the live ACTIVE enrollments of a course
// and writes the result to the course row, returning the new count.
func (s *StatsService) RecomputeStudentCount(ctx context.Context, courseID uint64) (int, error) {
    total, err := s.enrollments.CountActiveByCourse(ctx, courseID)
    if err != nil {
        return 0, err
    }
    if err := s.courses.UpdateTotalStudents(ctx, courseID, total); err != nil {
        return 0, err
    }
    return total, nil
}

// RecomputeReviewStats reads the review count and mean rating of a
// course and writes both denormalized fields.
func (s *StatsService) RecomputeReviewStats(ctx context.Context, courseID uint64) error {
    total, avg, err := s.reviews.StatsByCourse(ctx, courseID)
    if err != nil {
        return err
    }
    return s.courses.UpdateReviewStats(ctx, courseID, total, avg)
}
