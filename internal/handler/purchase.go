package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/learnhub/course-marketplace/internal/model"
    "github.com/learnhub/course-marketplace/internal/repository"
)

// PurchaseReader is the read-only slice of the purchase service used by
// the customer purchase endpoints.
type PurchaseReader interface {
    GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error)
    ListUserPurchases(ctx context.Context, userID uint64) ([]model.Purchase, error)
}

// PurchaseHandler serves a customer's purchase history.
type PurchaseHandler struct {
    Purchases PurchaseReader
}

// NewPurchaseHandler constructs a PurchaseHandler.
func NewPurchaseHandler(purchases PurchaseReader) *PurchaseHandler {
    if purchases == nil {
        panic("nil service passed to NewPurchaseHandler")
    }
    return &PurchaseHandler{Purchases: purchases}
}

// List handles GET /v1/purchases and returns the caller's purchases,
// newest first.
func (h *PurchaseHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    purchases, err := h.Purchases.ListUserPurchases(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"purchases": purchases})
}

// Get handles GET /v1/purchases/:id.  Callers can only read their own
// purchases.
func (h *PurchaseHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
    }
    p, err := h.Purchases.GetPurchase(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrPurchaseNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if p.UserID != userID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    return c.JSON(http.StatusOK, p)
}
