package vnpay

import (
    "errors"
    "net/url"
    "strconv"
    "strings"
)

// ErrInvalidTxnRef is returned when the callback's vnp_TxnRef is missing
// or does not parse as a purchase identifier.  It is rejected before any
// database lookup happens.
var ErrInvalidTxnRef = errors.New("vnpay: invalid transaction reference")

// Callback is the parsed and validated form of one gateway callback,
// built from the raw query parameters in a single pass.  Both callback
// channels (interactive return and server notification) carry the same
// parameter set, so both resolve through this type.
type Callback struct {
    TxnRef            string // gateway echo of our purchase ID
    Amount            string // amount in minor units (VND x100), as sent
    ResponseCode      string // vnp_ResponseCode
    TransactionStatus string // vnp_TransactionStatus
    TransactionNo     string // gateway-side transaction number
    BankCode          string
    OrderInfo         string
    PayDate           string
    SecureHash        string

    params map[string]string // every vnp_* parameter, for verification
}

// ParseCallback collects every vnp_*-prefixed query parameter into a
// Callback.  It never fails: signature verification must run before any
// field is trusted, so validation of the reference is a separate step
// (PurchaseID) invoked only after the hash checks out.
func ParseCallback(q url.Values) *Callback {
    params := make(map[string]string, len(q))
    for k := range q {
        if strings.HasPrefix(k, "vnp_") {
            params[k] = q.Get(k)
        }
    }
    return &Callback{
        TxnRef:            params["vnp_TxnRef"],
        Amount:            params["vnp_Amount"],
        ResponseCode:      params["vnp_ResponseCode"],
        TransactionStatus: params["vnp_TransactionStatus"],
        TransactionNo:     params["vnp_TransactionNo"],
        BankCode:          params["vnp_BankCode"],
        OrderInfo:         params["vnp_OrderInfo"],
        PayDate:           params["vnp_PayDate"],
        SecureHash:        q.Get("vnp_SecureHash"),
        params:            params,
    }
}

// PurchaseID parses the transaction reference into the purchase
// identifier it was minted from.  Malformed references are rejected
// here, before any lookup.
func (cb *Callback) PurchaseID() (uint64, error) {
    id, err := strconv.ParseUint(cb.TxnRef, 10, 64)
    if err != nil || id == 0 {
        return 0, ErrInvalidTxnRef
    }
    return id, nil
}

// Succeeded reports whether the gateway considers the payment settled.
// Only the exact pair of response code "00" and transaction status "00"
// means success; every other combination is a failure.
func (cb *Callback) Succeeded() bool {
    return cb.ResponseCode == "00" && cb.TransactionStatus == "00"
}
