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

// EnrollmentAdmin is the slice of the enrollment service exposed to
// administrators: lifecycle control plus a manual provisioning retry.
type EnrollmentAdmin interface {
    Grant(ctx context.Context, userID, courseID uint64) (*model.Enrollment, error)
    Revoke(ctx context.Context, id uint64) (*model.Enrollment, error)
    Restore(ctx context.Context, id uint64) (*model.Enrollment, error)
    Delete(ctx context.Context, id uint64) error
    ProvisionFromPurchase(ctx context.Context, purchaseID uint64) ([]model.Enrollment, error)
}

// AdminEnrollmentHandler serves the admin lifecycle of enrollments.
// Routes carrying this handler are guarded by the ADMIN role.
type AdminEnrollmentHandler struct {
    Enrollments EnrollmentAdmin
}

// NewAdminEnrollmentHandler constructs an AdminEnrollmentHandler.
func NewAdminEnrollmentHandler(enrollments EnrollmentAdmin) *AdminEnrollmentHandler {
    if enrollments == nil {
        panic("nil service passed to NewAdminEnrollmentHandler")
    }
    return &AdminEnrollmentHandler{Enrollments: enrollments}
}

// Grant handles POST /v1/admin/enrollments, the manual access grant
// outside any purchase.
func (h *AdminEnrollmentHandler) Grant(c echo.Context) error {
    var body struct {
        UserID   uint64 `json:"user_id"`
        CourseID uint64 `json:"course_id"`
    }
    if err := c.Bind(&body); err != nil || body.UserID == 0 || body.CourseID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and course_id are required"})
    }
    e, err := h.Enrollments.Grant(c.Request().Context(), body.UserID, body.CourseID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrCourseNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
        case errors.Is(err, service.ErrAlreadyEnrolled):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusCreated, e)
}

// Revoke handles POST /v1/admin/enrollments/:id/revoke.
func (h *AdminEnrollmentHandler) Revoke(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid enrollment id"})
    }
    e, err := h.Enrollments.Revoke(c.Request().Context(), id)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrEnrollmentNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
        case errors.Is(err, service.ErrAlreadyRevoked):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, e)
}

// Restore handles POST /v1/admin/enrollments/:id/restore.
func (h *AdminEnrollmentHandler) Restore(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid enrollment id"})
    }
    e, err := h.Enrollments.Restore(c.Request().Context(), id)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrEnrollmentNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
        case errors.Is(err, service.ErrEnrollmentNotRevoked), errors.Is(err, service.ErrEnrollmentExpired):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /v1/admin/enrollments/:id.  Deletion is a soft
// delete; the purchase history behind the enrollment stays intact.
func (h *AdminEnrollmentHandler) Delete(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid enrollment id"})
    }
    if err := h.Enrollments.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, repository.ErrEnrollmentNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Provision handles POST /v1/admin/purchases/:id/provision, the manual
// retry of provisioning for a completed purchase.  Payment state is
// never touched here; the operation only converges enrollments toward
// the purchase's items.
func (h *AdminEnrollmentHandler) Provision(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
    }
    enrollments, err := h.Enrollments.ProvisionFromPurchase(c.Request().Context(), id)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrPurchaseNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
        case errors.Is(err, service.ErrPurchaseNotPaid):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        case errors.Is(err, service.ErrProvisioningFailed):
            return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"enrollments": enrollments})
}
