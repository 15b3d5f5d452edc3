package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/learnhub/course-marketplace/internal/model"
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// EnrollmentRepo provides persistence for enrollments.  Enrollments are
// soft-deleted only: every query in this repository filters on
// deleted_at IS NULL, so a soft-deleted row is invisible everywhere
// except to the uniqueness check at insert time.
type EnrollmentRepo struct {
    db *sql.DB
}

// NewEnrollmentRepo returns a new EnrollmentRepo bound to the given database.
func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

const enrollmentColumns = `id, user_id, course_id, enrolled_at, expires_at, progress, status, created_at, updated_at`

// Create inserts a new enrollment and populates its generated ID and
// timestamps.  A unique key violation on (user_id, course_id) is
// reported as ErrDuplicateEnrollment so the provisioner can resolve the
// race to "already enrolled" instead of failing the item.
func (r *EnrollmentRepo) Create(ctx context.Context, e *model.Enrollment) error {
    const q = `INSERT INTO enrollments (user_id, course_id, enrolled_at, expires_at, progress, status)
               VALUES (?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, e.UserID, e.CourseID, e.EnrolledAt, e.ExpiresAt, e.Progress, e.Status)
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
            return ErrDuplicateEnrollment
        }
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    const sel = `SELECT created_at, updated_at FROM enrollments WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, e.ID).Scan(&e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns a live enrollment by its identifier or
// ErrEnrollmentNotFound.
func (r *EnrollmentRepo) GetByID(ctx context.Context, id uint64) (*model.Enrollment, error) {
    const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = ? AND deleted_at IS NULL`
    return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetLiveByUserAndCourse returns the live enrollment for a (user, course)
// pair or ErrEnrollmentNotFound.  The uniqueness invariant guarantees at
// most one such row.
func (r *EnrollmentRepo) GetLiveByUserAndCourse(ctx context.Context, userID, courseID uint64) (*model.Enrollment, error) {
    const q = `SELECT ` + enrollmentColumns + `
               FROM enrollments WHERE user_id = ? AND course_id = ? AND deleted_at IS NULL`
    return r.scanOne(r.db.QueryRowContext(ctx, q, userID, courseID))
}

// ListByUser returns the user's live enrollments, newest first.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Enrollment, error) {
    const q = `SELECT ` + enrollmentColumns + `
               FROM enrollments WHERE user_id = ? AND deleted_at IS NULL
               ORDER BY enrolled_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    list := make([]model.Enrollment, 0)
    for rows.Next() {
        var e model.Enrollment
        var expires sql.NullTime
        if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt, &expires,
            &e.Progress, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
            return nil, err
        }
        if expires.Valid {
            t := expires.Time
            e.ExpiresAt = &t
        }
        list = append(list, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return list, nil
}

// UpdateProgress writes the progress percentage of a live enrollment.
func (r *EnrollmentRepo) UpdateProgress(ctx context.Context, id uint64, progress uint8) error {
    const q = `UPDATE enrollments SET progress = ?, updated_at = NOW()
               WHERE id = ? AND deleted_at IS NULL`
    return r.execExpectingRow(ctx, q, progress, id)
}

// UpdateStatus writes the lifecycle status of a live enrollment.
func (r *EnrollmentRepo) UpdateStatus(ctx context.Context, id uint64, status model.EnrollmentStatus) error {
    const q = `UPDATE enrollments SET status = ?, updated_at = NOW()
               WHERE id = ? AND deleted_at IS NULL`
    return r.execExpectingRow(ctx, q, status, id)
}

// SoftDelete marks an enrollment as deleted.  The row stays in place so
// the purchase history behind it remains auditable; only liveness ends.
func (r *EnrollmentRepo) SoftDelete(ctx context.Context, id uint64) error {
    const q = `UPDATE enrollments SET deleted_at = ?, updated_at = NOW()
               WHERE id = ? AND deleted_at IS NULL`
    return r.execExpectingRow(ctx, q, time.Now().UTC(), id)
}

// CountActiveByCourse counts the live ACTIVE enrollments for a course.
// This is the authoritative source the denormalized total_students
// field is recomputed from.
func (r *EnrollmentRepo) CountActiveByCourse(ctx context.Context, courseID uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM enrollments
               WHERE course_id = ? AND status = ? AND deleted_at IS NULL`
    var n int
    err := r.db.QueryRowContext(ctx, q, courseID, model.EnrollmentStatusActive).Scan(&n)
    return n, err
}

func (r *EnrollmentRepo) execExpectingRow(ctx context.Context, q string, args ...interface{}) error {
    result, err := r.db.ExecContext(ctx, q, args...)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrEnrollmentNotFound
    }
    return nil
}

func (r *EnrollmentRepo) scanOne(row *sql.Row) (*model.Enrollment, error) {
    var e model.Enrollment
    var expires sql.NullTime
    err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt, &expires,
        &e.Progress, &e.Status, &e.CreatedAt, &e.UpdatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrEnrollmentNotFound
    }
    if err != nil {
        return nil, err
    }
    if expires.Valid {
        t := expires.Time
        e.ExpiresAt = &t
    }
    return &e, nil
}
