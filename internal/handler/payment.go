package handler

import (
    "context"
    "errors"
    "fmt"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/learnhub/course-marketplace/internal/model"
    "github.com/learnhub/course-marketplace/internal/queue"
    "github.com/learnhub/course-marketplace/internal/repository"
    "github.com/learnhub/course-marketplace/internal/service"
    "github.com/learnhub/course-marketplace/internal/vnpay"
)

// PurchaseConfirmer is the slice of the purchase service the payment
// handler uses.
type PurchaseConfirmer interface {
    CreatePurchase(ctx context.Context, userID uint64, courseIDs []uint64) (*model.Purchase, error)
    GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error)
    ConfirmPurchase(ctx context.Context, id uint64, status model.PurchaseStatus, txnRef string) (service.ConfirmOutcome, *model.Purchase, error)
}

// Provisioner is the slice of the enrollment service the payment
// handler uses.
type Provisioner interface {
    ProvisionFromPurchase(ctx context.Context, purchaseID uint64) ([]model.Enrollment, error)
    IsEnrolled(ctx context.Context, userID, courseID uint64) (bool, error)
}

// CartClearer empties a user's cart after a completed purchase.
type CartClearer interface {
    ClearByUser(ctx context.Context, userID uint64) error
}

// PaymentHandler owns checkout and the two gateway callback channels.
// Both channels funnel into the same idempotent confirmation: the
// conditional status transition decides which single caller runs the
// one-shot side effects, so receiving the interactive return and the
// server notification in any order, any number of times, produces
// exactly one provisioning pass and one cart clear.
type PaymentHandler struct {
    Purchases   PurchaseConfirmer
    Enrollments Provisioner
    Carts       CartClearer
    Gateway     *vnpay.Client
}

// NewPaymentHandler constructs a PaymentHandler.  All dependencies must
// be non-nil.
func NewPaymentHandler(purchases PurchaseConfirmer, enrollments Provisioner, carts CartClearer, gateway *vnpay.Client) *PaymentHandler {
    if purchases == nil || enrollments == nil || carts == nil || gateway == nil {
        panic("nil dependency passed to NewPaymentHandler")
    }
    return &PaymentHandler{Purchases: purchases, Enrollments: enrollments, Carts: carts, Gateway: gateway}
}

// CreatePayment handles POST /v1/payments.  It creates a PENDING
// purchase for the requested courses and returns the signed gateway
// redirect URL.  Courses the user already holds are rejected up front
// so a completed payment cannot produce a duplicate entitlement.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        CourseIDs []uint64 `json:"course_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.CourseIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "course_ids is required"})
    }
    ctx := c.Request().Context()
    for _, courseID := range body.CourseIDs {
        enrolled, err := h.Enrollments.IsEnrolled(ctx, userID, courseID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        if enrolled {
            return c.JSON(http.StatusBadRequest, echo.Map{
                "success": false,
                "message": fmt.Sprintf("already enrolled in course %d", courseID),
            })
        }
    }

    purchase, err := h.Purchases.CreatePurchase(ctx, userID, body.CourseIDs)
    if err != nil {
        if errors.Is(err, repository.ErrCourseNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
        }
        if errors.Is(err, service.ErrEmptyPurchase) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create purchase"})
    }

    txnRef := strconv.FormatUint(purchase.ID, 10)
    paymentURL := h.Gateway.BuildPaymentURL(map[string]string{
        "vnp_Version":    "2.1.0",
        "vnp_Command":    "pay",
        "vnp_TmnCode":    h.Gateway.TmnCode(),
        "vnp_Amount":     purchase.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0),
        "vnp_CreateDate": time.Now().Format("20060102150405"),
        "vnp_CurrCode":   "VND",
        "vnp_IpAddr":     clientIP(c),
        "vnp_Locale":     "vn",
        "vnp_OrderInfo":  fmt.Sprintf("Payment for order #%d", purchase.ID),
        "vnp_OrderType":  "other",
        "vnp_ReturnUrl":  h.Gateway.ReturnURL(),
        "vnp_TxnRef":     txnRef,
    })

    return c.JSON(http.StatusOK, echo.Map{
        "success":     true,
        "payment_url": paymentURL,
        "purchase_id": purchase.ID,
        "amount":      purchase.Amount,
        "txn_ref":     txnRef,
    })
}

// VNPayReturn handles GET /v1/payments/vnpay-return, the interactive
// channel the customer is redirected through.  The response always
// reports the payment outcome truthfully; provisioning problems are
// logged and retried later, never shown here, because by this point the
// customer has already paid.
func (h *PaymentHandler) VNPayReturn(c echo.Context) error {
    cb := vnpay.ParseCallback(c.QueryParams())
    if !h.Gateway.VerifyCallback(cb) {
        log.Printf("payment: return callback with invalid signature from %s", clientIP(c))
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid signature"})
    }
    purchaseID, err := cb.PurchaseID()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid transaction reference"})
    }
    ctx := c.Request().Context()
    purchase, err := h.Purchases.GetPurchase(ctx, purchaseID)
    if err != nil {
        if errors.Is(err, repository.ErrPurchaseNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "purchase not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "database error"})
    }
    if purchase.Status == model.PurchaseStatusCompleted {
        return c.JSON(http.StatusOK, echo.Map{
            "success":     true,
            "message":     "purchase already paid",
            "purchase_id": purchaseID,
            "amount":      purchase.Amount,
        })
    }

    if !cb.Succeeded() {
        if _, _, err := h.Purchases.ConfirmPurchase(ctx, purchaseID, model.PurchaseStatusFailed, cb.TransactionNo); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "database error"})
        }
        log.Printf("payment: purchase %d failed, response code %s", purchaseID, cb.ResponseCode)
        return c.JSON(http.StatusOK, echo.Map{
            "success":       false,
            "message":       vnpay.ResponseMessage(cb.ResponseCode),
            "purchase_id":   purchaseID,
            "response_code": cb.ResponseCode,
        })
    }

    outcome, confirmed, err := h.Purchases.ConfirmPurchase(ctx, purchaseID, model.PurchaseStatusCompleted, cb.TransactionNo)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "database error"})
    }
    if outcome == service.ConfirmTransitioned {
        h.completePurchase(ctx, confirmed)
    }

    return c.JSON(http.StatusOK, echo.Map{
        "success":        true,
        "message":        "payment successful",
        "purchase_id":    purchaseID,
        "amount":         minorUnitsToAmount(cb.Amount),
        "transaction_id": cb.TransactionNo,
        "response_code":  cb.ResponseCode,
    })
}

// VNPayIPN handles GET /v1/payments/vnpay-ipn, the server-to-server
// channel.  The gateway retries until it sees a success code, so every
// already-handled situation is acknowledged as success: the business
// effect is exactly-once even though delivery is at-least-once.
func (h *PaymentHandler) VNPayIPN(c echo.Context) error {
    cb := vnpay.ParseCallback(c.QueryParams())
    if !h.Gateway.VerifyCallback(cb) {
        return c.JSON(http.StatusOK, echo.Map{"RspCode": "97", "Message": "Invalid Signature"})
    }
    purchaseID, err := cb.PurchaseID()
    if err != nil {
        return c.JSON(http.StatusOK, echo.Map{"RspCode": "99", "Message": "Invalid TxnRef"})
    }
    ctx := c.Request().Context()
    purchase, err := h.Purchases.GetPurchase(ctx, purchaseID)
    if err != nil {
        if errors.Is(err, repository.ErrPurchaseNotFound) {
            return c.JSON(http.StatusOK, echo.Map{"RspCode": "01", "Message": "Order Not Found"})
        }
        return c.JSON(http.StatusOK, echo.Map{"RspCode": "99", "Message": "Unknown error"})
    }
    if purchase.Status == model.PurchaseStatusCompleted {
        return c.JSON(http.StatusOK, echo.Map{"RspCode": "02", "Message": "Order Already Confirmed"})
    }

    status := model.PurchaseStatusFailed
    if cb.Succeeded() {
        status = model.PurchaseStatusCompleted
    }
    outcome, confirmed, err := h.Purchases.ConfirmPurchase(ctx, purchaseID, status, cb.TransactionNo)
    if err != nil {
        return c.JSON(http.StatusOK, echo.Map{"RspCode": "99", "Message": "Unknown error"})
    }
    if outcome == service.ConfirmAlreadyTerminal && confirmed.Status == model.PurchaseStatusCompleted {
        // Raced with the interactive return between the read above and
        // the conditional update.
        return c.JSON(http.StatusOK, echo.Map{"RspCode": "02", "Message": "Order Already Confirmed"})
    }
    if outcome == service.ConfirmTransitioned && status == model.PurchaseStatusCompleted {
        h.completePurchase(ctx, confirmed)
    }
    return c.JSON(http.StatusOK, echo.Map{"RspCode": "00", "Message": "Confirm Success"})
}

// completePurchase runs the one-shot side effects of a completed
// payment: cart clear, event publish, provisioning.  Every step is
// fallible and none of them may unwind the payment state, so failures
// are logged and left for an independent retry.
func (h *PaymentHandler) completePurchase(ctx context.Context, purchase *model.Purchase) {
    if err := h.Carts.ClearByUser(ctx, purchase.UserID); err != nil {
        log.Printf("payment: clear cart for user %d: %v", purchase.UserID, err)
    }

    courseIDs := make([]uint64, 0, len(purchase.Items))
    for _, item := range purchase.Items {
        courseIDs = append(courseIDs, item.CourseID)
    }
    txnRef := ""
    if purchase.TransactionRef != nil {
        txnRef = *purchase.TransactionRef
    }
    if err := queue.PublishPurchaseCompleted(ctx, queue.PurchaseCompletedEvent{
        PurchaseID:     purchase.ID,
        UserID:         purchase.UserID,
        Amount:         purchase.Amount.String(),
        TransactionRef: txnRef,
        CourseIDs:      courseIDs,
        CompletedAt:    time.Now().UTC().Format(time.RFC3339),
    }); err != nil {
        log.Printf("payment: publish event for purchase %d: %v", purchase.ID, err)
    }

    enrollments, err := h.Enrollments.ProvisionFromPurchase(ctx, purchase.ID)
    if err != nil {
        log.Printf("payment: provisioning for purchase %d: %v", purchase.ID, err)
        return
    }
    log.Printf("payment: provisioned %d enrollments for purchase %d", len(enrollments), purchase.ID)
}

// minorUnitsToAmount converts the gateway's minor-unit amount string
// (VND x100) back to the major-unit value for display.  A malformed
// amount falls back to zero rather than failing a successful payment.
func minorUnitsToAmount(raw string) decimal.Decimal {
    d, err := decimal.NewFromString(raw)
    if err != nil {
        return decimal.Zero
    }
    return d.Div(decimal.NewFromInt(100))
}

// clientIP returns the caller's address for the gateway request, with
// the loopback normalization the gateway expects.
func clientIP(c echo.Context) string {
    ip := c.RealIP()
    if ip == "" || ip == "::1" {
        ip = "127.0.0.1"
    }
    return ip
}
