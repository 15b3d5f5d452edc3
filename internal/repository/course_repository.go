package repository

import (
    "context"
    "database/sql"

    "github.com/learnhub/course-marketplace/internal/model"
)

// CourseRepo reads catalog rows and writes the denormalized aggregate
// fields.  Catalog authoring (create/update/delete of courses) happens
// outside this service; here a course is only ever looked up for a
// price snapshot or rewritten with fresh aggregate values.
type CourseRepo struct {
    db *sql.DB
}

// NewCourseRepo returns a new CourseRepo bound to the given database.
func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

// GetByID returns a course or ErrCourseNotFound.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (*model.Course, error) {
    const q = `SELECT id, title, price, total_students, average_rating, total_reviews, created_at, updated_at
               FROM courses WHERE id = ?`
    var c model.Course
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &c.ID, &c.Title, &c.Price, &c.TotalStudents, &c.AverageRating, &c.TotalReviews,
        &c.CreatedAt, &c.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrCourseNotFound
    }
    if err != nil {
        return nil, err
    }
    return &c, nil
}

// UpdateTotalStudents overwrites the denormalized student count.
func (r *CourseRepo) UpdateTotalStudents(ctx context.Context, courseID uint64, total int) error {
    const q = `UPDATE courses SET total_students = ?, updated_at = NOW() WHERE id = ?`
    result, err := r.db.ExecContext(ctx, q, total, courseID)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    // RowsAffected is 0 both for a missing row and for an unchanged
    // value, so a separate existence probe decides which it was.
    if n == 0 {
        return r.exists(ctx, courseID)
    }
    return nil
}

// UpdateReviewStats overwrites the denormalized review aggregates.
func (r *CourseRepo) UpdateReviewStats(ctx context.Context, courseID uint64, totalReviews int, averageRating float64) error {
    const q = `UPDATE courses SET total_reviews = ?, average_rating = ?, updated_at = NOW() WHERE id = ?`
    result, err := r.db.ExecContext(ctx, q, totalReviews, averageRating, courseID)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return r.exists(ctx, courseID)
    }
    return nil
}

func (r *CourseRepo) exists(ctx context.Context, courseID uint64) error {
    const q = `SELECT 1 FROM courses WHERE id = ?`
    var one int
    err := r.db.QueryRowContext(ctx, q, courseID).Scan(&one)
    if err == sql.ErrNoRows {
        return ErrCourseNotFound
    }
    return err
}
