package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/learnhub/course-marketplace/internal/model"
    "github.com/learnhub/course-marketplace/internal/repository"
    "github.com/learnhub/course-marketplace/internal/service"
)

// EnrollmentReader is the slice of the enrollment service the customer
// endpoints use.
type EnrollmentReader interface {
    ListUserEnrollments(ctx context.Context, userID uint64) ([]model.Enrollment, error)
    GetEnrollment(ctx context.Context, id uint64) (*model.Enrollment, error)
    UpdateProgress(ctx context.Context, id uint64, progress int) (*model.Enrollment, error)
    HasActiveAccess(ctx context.Context, userID, courseID uint64) (bool, error)
}

// EnrollmentHandler serves a customer's own enrollments and the access
// guard endpoint.  JWT authentication is assumed to have run already.
type EnrollmentHandler struct {
    Enrollments EnrollmentReader
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(enrollments EnrollmentReader) *EnrollmentHandler {
    if enrollments == nil {
        panic("nil service passed to NewEnrollmentHandler")
    }
    return &EnrollmentHandler{Enrollments: enrollments}
}

// List handles GET /v1/enrollments and returns the caller's live
// enrollments, newest first.
func (h *EnrollmentHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Enrollments.ListUserEnrollments(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"enrollments": list})
}

// Get handles GET /v1/enrollments/:id.  Callers can only read their own
// enrollments.
func (h *EnrollmentHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid enrollment id"})
    }
    e, err := h.Enrollments.GetEnrollment(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrEnrollmentNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if e.UserID != userID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    return c.JSON(http.StatusOK, e)
}

// UpdateProgress handles PATCH /v1/enrollments/:id/progress with a JSON
// body {"progress": 0..100}.
func (h *EnrollmentHandler) UpdateProgress(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid enrollment id"})
    }
    var body struct {
        Progress int `json:"progress"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    e, err := h.Enrollments.GetEnrollment(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrEnrollmentNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if e.UserID != userID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    updated, err := h.Enrollments.UpdateProgress(ctx, id, body.Progress)
    if err != nil {
        if errors.Is(err, service.ErrInvalidProgress) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, updated)
}

// Access handles GET /v1/courses/:id/access and answers whether the
// caller currently holds valid access to the course.
func (h *EnrollmentHandler) Access(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    courseID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
    }
    ok, err := h.Enrollments.HasActiveAccess(c.Request().Context(), userID, courseID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"course_id": courseID, "has_access": ok})
}
