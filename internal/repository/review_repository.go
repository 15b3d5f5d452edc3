package repository

import (
    "context"
    "database/sql"
)

// ReviewRepo reads review rows.  Review CRUD lives in another part of
// the system; this repository only exposes the aggregate query the
// stats recomputation needs.
type ReviewRepo struct {
    db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// StatsByCourse returns the review count and mean rating for a course.
// A course with no reviews yields (0, 0).
func (r *ReviewRepo) StatsByCourse(ctx context.Context, courseID uint64) (int, float64, error) {
    const q = `SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE course_id = ?`
    var total int
    var avg float64
    err := r.db.QueryRowContext(ctx, q, courseID).Scan(&total, &avg)
    if err != nil && err != sql.ErrNoRows {
        return 0, 0, err
    }
    return total, avg, nil
}
