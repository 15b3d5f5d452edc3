package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "sync"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/learnhub/course-marketplace/internal/model"
    "github.com/learnhub/course-marketplace/internal/repository"
    "github.com/learnhub/course-marketplace/internal/service"
    "github.com/learnhub/course-marketplace/internal/vnpay"
)

// stubPurchases implements PurchaseConfirmer with the same conditional
// transition semantics as the SQL-backed service.
type stubPurchases struct {
    mu        sync.Mutex
    nextID    uint64
    purchases map[uint64]*model.Purchase
}

func newStubPurchases() *stubPurchases {
    return &stubPurchases{nextID: 1, purchases: map[uint64]*model.Purchase{}}
}

func (s *stubPurchases) seed(userID uint64, status model.PurchaseStatus, courseIDs ...uint64) *model.Purchase {
    s.mu.Lock()
    defer s.mu.Unlock()
    items := make([]model.PurchaseItem, len(courseIDs))
    for i, id := range courseIDs {
        items[i] = model.PurchaseItem{CourseID: id}
    }
    p := &model.Purchase{ID: s.nextID, UserID: userID, Status: status, Amount: decimal.NewFromInt(150000), Items: items}
    s.purchases[p.ID] = p
    s.nextID++
    return p
}

func (s *stubPurchases) CreatePurchase(_ context.Context, userID uint64, courseIDs []uint64) (*model.Purchase, error) {
    return s.seed(userID, model.PurchaseStatusPending, courseIDs...), nil
}

func (s *stubPurchases) GetPurchase(_ context.Context, id uint64) (*model.Purchase, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    p, ok := s.purchases[id]
    if !ok {
        return nil, repository.ErrPurchaseNotFound
    }
    cp := *p
    return &cp, nil
}

func (s *stubPurchases) ConfirmPurchase(_ context.Context, id uint64, status model.PurchaseStatus, txnRef string) (service.ConfirmOutcome, *model.Purchase, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    p, ok := s.purchases[id]
    if !ok {
        return service.ConfirmNotFound, nil, nil
    }
    if p.Status != model.PurchaseStatusPending {
        cp := *p
        return service.ConfirmAlreadyTerminal, &cp, nil
    }
    p.Status = status
    ref := txnRef
    p.TransactionRef = &ref
    cp := *p
    return service.ConfirmTransitioned, &cp, nil
}

// stubEnrollments implements Provisioner and counts provisioning passes.
type stubEnrollments struct {
    mu         sync.Mutex
    provisions []uint64
    enrolled   map[uint64]bool // courseID -> already enrolled
}

func newStubEnrollments() *stubEnrollments {
    return &stubEnrollments{enrolled: map[uint64]bool{}}
}

func (s *stubEnrollments) ProvisionFromPurchase(_ context.Context, purchaseID uint64) ([]model.Enrollment, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.provisions = append(s.provisions, purchaseID)
    return []model.Enrollment{{ID: 1, Status: model.EnrollmentStatusActive}}, nil
}

func (s *stubEnrollments) IsEnrolled(_ context.Context, _, courseID uint64) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.enrolled[courseID], nil
}

func (s *stubEnrollments) provisionCount() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.provisions)
}

// stubCarts implements CartClearer and counts cart clears.
type stubCarts struct {
    mu     sync.Mutex
    clears []uint64
}

func (s *stubCarts) ClearByUser(_ context.Context, userID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.clears = append(s.clears, userID)
    return nil
}

func (s *stubCarts) clearCount() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.clears)
}

type paymentFixture struct {
    purchases   *stubPurchases
    enrollments *stubEnrollments
    carts       *stubCarts
    gateway     *vnpay.Client
    h           *PaymentHandler
}

func newPaymentFixture() *paymentFixture {
    f := &paymentFixture{
        purchases:   newStubPurchases(),
        enrollments: newStubEnrollments(),
        carts:       &stubCarts{},
        gateway: vnpay.NewClient(vnpay.Config{
            TmnCode:    "LEARNHUB",
            HashSecret: "test-secret",
            BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
            ReturnURL:  "https://learnhub.example/v1/payments/vnpay-return",
        }),
    }
    f.h = NewPaymentHandler(f.purchases, f.enrollments, f.carts, f.gateway)
    return f
}

// signedQuery signs the callback parameters with the fixture's gateway
// secret and returns the full query string a genuine callback carries.
func (f *paymentFixture) signedQuery(t *testing.T, params map[string]string) string {
    t.Helper()
    raw := f.gateway.BuildPaymentURL(params)
    u, err := url.Parse(raw)
    require.NoError(t, err)
    return u.RawQuery
}

func callbackParams(txnRef, responseCode, txnStatus string) map[string]string {
    return map[string]string{
        "vnp_TxnRef":            txnRef,
        "vnp_Amount":            "15000000",
        "vnp_ResponseCode":      responseCode,
        "vnp_TransactionStatus": txnStatus,
        "vnp_TransactionNo":     "14422574",
        "vnp_BankCode":          "NCB",
        "vnp_PayDate":           "20260102150405",
    }
}

func doGET(h echo.HandlerFunc, rawQuery string) (*httptest.ResponseRecorder, map[string]any, error) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    err := h(c)
    var body map[string]any
    _ = json.Unmarshal(rec.Body.Bytes(), &body)
    return rec, body, err
}

func TestVNPayIPNInvalidSignature(t *testing.T) {
    f := newPaymentFixture()
    q := f.signedQuery(t, callbackParams("1", "00", "00"))
    rec, body, err := doGET(f.h.VNPayIPN, strings.Replace(q, "vnp_Amount=15000000", "vnp_Amount=1", 1))
    require.NoError(t, err)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "97", body["RspCode"])
    assert.Zero(t, f.enrollments.provisionCount())
}

func TestVNPayIPNInvalidTxnRef(t *testing.T) {
    f := newPaymentFixture()
    q := f.signedQuery(t, callbackParams("not-a-number", "00", "00"))
    _, body, err := doGET(f.h.VNPayIPN, q)
    require.NoError(t, err)
    assert.Equal(t, "99", body["RspCode"])
}

func TestVNPayIPNOrderNotFound(t *testing.T) {
    f := newPaymentFixture()
    q := f.signedQuery(t, callbackParams("42", "00", "00"))
    _, body, err := doGET(f.h.VNPayIPN, q)
    require.NoError(t, err)
    assert.Equal(t, "01", body["RspCode"])
}

func TestVNPayIPNSuccessRunsOneShotSideEffects(t *testing.T) {
    f := newPaymentFixture()
    p := f.purchases.seed(7, model.PurchaseStatusPending, 1, 2)
    q := f.signedQuery(t, callbackParams("1", "00", "00"))

    _, body, err := doGET(f.h.VNPayIPN, q)
    require.NoError(t, err)
    assert.Equal(t, "00", body["RspCode"])
    assert.Equal(t, "Confirm Success", body["Message"])

    confirmed, err := f.purchases.GetPurchase(context.Background(), p.ID)
    require.NoError(t, err)
    assert.Equal(t, model.PurchaseStatusCompleted, confirmed.Status)
    assert.Equal(t, 1, f.enrollments.provisionCount())
    assert.Equal(t, 1, f.carts.clearCount())
}

func TestVNPayIPNDuplicateDeliveryAcknowledgedWithoutReplay(t *testing.T) {
    f := newPaymentFixture()
    f.purchases.seed(7, model.PurchaseStatusPending, 1)
    q := f.signedQuery(t, callbackParams("1", "00", "00"))

    _, body, err := doGET(f.h.VNPayIPN, q)
    require.NoError(t, err)
    require.Equal(t, "00", body["RspCode"])

    // The gateway retries the same notification: acknowledged as
    // already confirmed, with no second provisioning or cart clear.
    _, body, err = doGET(f.h.VNPayIPN, q)
    require.NoError(t, err)
    assert.Equal(t, "02", body["RspCode"])
    assert.Equal(t, 1, f.enrollments.provisionCount())
    assert.Equal(t, 1, f.carts.clearCount())
}

func TestVNPayIPNFailedPaymentConfirmedWithoutSideEffects(t *testing.T) {
    f := newPaymentFixture()
    p := f.purchases.seed(7, model.PurchaseStatusPending, 1)
    q := f.signedQuery(t, callbackParams("1", "24", "02"))

    _, body, err := doGET(f.h.VNPayIPN, q)
    require.NoError(t, err)
    // The notification itself was processed fine, so the gateway gets a
    // success acknowledgement even though the payment failed.
    assert.Equal(t, "00", body["RspCode"])

    confirmed, err := f.purchases.GetPurchase(context.Background(), p.ID)
    require.NoError(t, err)
    assert.Equal(t, model.PurchaseStatusFailed, confirmed.Status)
    assert.Zero(t, f.enrollments.provisionCount())
    assert.Zero(t, f.carts.clearCount())
}

func TestVNPayReturnSuccessProvisionsOnce(t *testing.T) {
    f := newPaymentFixture()
    f.purchases.seed(7, model.PurchaseStatusPending, 1)
    q := f.signedQuery(t, callbackParams("1", "00", "00"))

    rec, body, err := doGET(f.h.VNPayReturn, q)
    require.NoError(t, err)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, true, body["success"])
    assert.Equal(t, "payment successful", body["message"])
    assert.Equal(t, 1, f.enrollments.provisionCount())

    // The customer refreshes the return page: already paid, no replay.
    _, body, err = doGET(f.h.VNPayReturn, q)
    require.NoError(t, err)
    assert.Equal(t, true, body["success"])
    assert.Equal(t, "purchase already paid", body["message"])
    assert.Equal(t, 1, f.enrollments.provisionCount())
    assert.Equal(t, 1, f.carts.clearCount())
}

func TestVNPayReturnFailedPayment(t *testing.T) {
    f := newPaymentFixture()
    p := f.purchases.seed(7, model.PurchaseStatusPending, 1)
    q := f.signedQuery(t, callbackParams("1", "24", "02"))

    rec, body, err := doGET(f.h.VNPayReturn, q)
    require.NoError(t, err)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, false, body["success"])
    assert.Equal(t, "24", body["response_code"])
    assert.Equal(t, "Transaction cancelled by the customer", body["message"])

    confirmed, err := f.purchases.GetPurchase(context.Background(), p.ID)
    require.NoError(t, err)
    assert.Equal(t, model.PurchaseStatusFailed, confirmed.Status)
    assert.Zero(t, f.enrollments.provisionCount())
}

func TestVNPayReturnRejectsInvalidSignature(t *testing.T) {
    f := newPaymentFixture()
    f.purchases.seed(7, model.PurchaseStatusPending, 1)
    q := f.signedQuery(t, callbackParams("1", "00", "00"))

    rec, body, err := doGET(f.h.VNPayReturn, strings.Replace(q, "vnp_TxnRef=1", "vnp_TxnRef=2", 1))
    require.NoError(t, err)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, false, body["success"])
    assert.Zero(t, f.enrollments.provisionCount())
}

func TestVNPayReturnUnknownPurchase(t *testing.T) {
    f := newPaymentFixture()
    q := f.signedQuery(t, callbackParams("42", "00", "00"))
    rec, _, err := doGET(f.h.VNPayReturn, q)
    require.NoError(t, err)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDualChannelDeliverySettlesOnce(t *testing.T) {
    // The interactive return lands first, then the server notification
    // follows for the same purchase: one provisioning pass, one cart
    // clear, and the notification acknowledged as already confirmed.
    f := newPaymentFixture()
    f.purchases.seed(7, model.PurchaseStatusPending, 1)
    q := f.signedQuery(t, callbackParams("1", "00", "00"))

    _, body, err := doGET(f.h.VNPayReturn, q)
    require.NoError(t, err)
    require.Equal(t, true, body["success"])

    _, body, err = doGET(f.h.VNPayIPN, q)
    require.NoError(t, err)
    assert.Equal(t, "02", body["RspCode"])
    assert.Equal(t, 1, f.enrollments.provisionCount())
    assert.Equal(t, 1, f.carts.clearCount())
}

func TestCreatePaymentBuildsSignedRedirect(t *testing.T) {
    f := newPaymentFixture()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/payments", strings.NewReader(`{"course_ids":[1,2]}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", uint64(7))

    require.NoError(t, f.h.CreatePayment(c))
    require.Equal(t, http.StatusOK, rec.Code)

    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    assert.Equal(t, true, body["success"])

    paymentURL, _ := body["payment_url"].(string)
    u, err := url.Parse(paymentURL)
    require.NoError(t, err)
    q := u.Query()
    assert.Equal(t, "1", q.Get("vnp_TxnRef"))
    assert.Equal(t, "15000000", q.Get("vnp_Amount"), "amount must be in minor units")
    assert.Equal(t, "LEARNHUB", q.Get("vnp_TmnCode"))

    params := map[string]string{}
    for k := range q {
        params[k] = q.Get(k)
    }
    assert.True(t, f.gateway.VerifySignature(params, q.Get("vnp_SecureHash")))
}

func TestCreatePaymentRejectsHeldCourse(t *testing.T) {
    f := newPaymentFixture()
    f.enrollments.enrolled[2] = true
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/payments", strings.NewReader(`{"course_ids":[1,2]}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", uint64(7))

    require.NoError(t, f.h.CreatePayment(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentRequiresCourses(t *testing.T) {
    f := newPaymentFixture()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/payments", strings.NewReader(`{"course_ids":[]}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", uint64(7))

    require.NoError(t, f.h.CreatePayment(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMinorUnitsToAmount(t *testing.T) {
    assert.True(t, minorUnitsToAmount("15000000").Equal(decimal.NewFromInt(150000)))
    assert.True(t, minorUnitsToAmount("garbage").IsZero())
}
