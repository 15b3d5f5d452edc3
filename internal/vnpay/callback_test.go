package vnpay

import (
    "net/url"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseCallbackCollectsGatewayParams(t *testing.T) {
    q := url.Values{}
    q.Set("vnp_TxnRef", "42")
    q.Set("vnp_Amount", "15000000")
    q.Set("vnp_ResponseCode", "00")
    q.Set("vnp_TransactionStatus", "00")
    q.Set("vnp_TransactionNo", "14422574")
    q.Set("vnp_BankCode", "NCB")
    q.Set("vnp_SecureHash", "abc123")
    q.Set("utm_source", "email") // non-gateway noise must not leak in

    cb := ParseCallback(q)
    assert.Equal(t, "42", cb.TxnRef)
    assert.Equal(t, "15000000", cb.Amount)
    assert.Equal(t, "14422574", cb.TransactionNo)
    assert.Equal(t, "NCB", cb.BankCode)
    assert.Equal(t, "abc123", cb.SecureHash)
    assert.NotContains(t, cb.params, "utm_source")
}

func TestPurchaseID(t *testing.T) {
    cases := []struct {
        ref     string
        want    uint64
        wantErr bool
    }{
        {"42", 42, false},
        {"1", 1, false},
        {"0", 0, true},
        {"", 0, true},
        {"abc", 0, true},
        {"-5", 0, true},
        {"42abc", 0, true},
    }
    for _, tc := range cases {
        cb := &Callback{TxnRef: tc.ref}
        id, err := cb.PurchaseID()
        if tc.wantErr {
            require.ErrorIs(t, err, ErrInvalidTxnRef, "ref %q", tc.ref)
            continue
        }
        require.NoError(t, err, "ref %q", tc.ref)
        assert.Equal(t, tc.want, id)
    }
}

func TestSucceededRequiresBothCodes(t *testing.T) {
    assert.True(t, (&Callback{ResponseCode: "00", TransactionStatus: "00"}).Succeeded())
    assert.False(t, (&Callback{ResponseCode: "00", TransactionStatus: "02"}).Succeeded())
    assert.False(t, (&Callback{ResponseCode: "24", TransactionStatus: "00"}).Succeeded())
    assert.False(t, (&Callback{}).Succeeded())
}

func TestResponseMessage(t *testing.T) {
    assert.Equal(t, "Transaction successful", ResponseMessage("00"))
    assert.NotEmpty(t, ResponseMessage("24"))
    assert.Equal(t, "Transaction failed", ResponseMessage("unknown-code"))
}
