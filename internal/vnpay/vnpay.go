// Package vnpay implements the outbound signed payment request and the
// inbound callback verification for the VNPay gateway.  The package is
// stateless: a Client is a pure transform over an explicitly supplied
// configuration, never an ambient environment lookup.
package vnpay

import (
    "crypto/hmac"
    "crypto/sha512"
    "encoding/hex"
    "net/url"
    "sort"
    "strings"
)

// Config carries the merchant credentials and endpoints for one gateway
// account.  It is constructed once at startup and handed to NewClient.
type Config struct {
    TmnCode    string // merchant terminal code, sent as vnp_TmnCode
    HashSecret string // shared secret for the keyed hash
    BaseURL    string // gateway payment page, e.g. https://sandbox.vnpayment.vn/paymentv2/vpcpay.html
    ReturnURL  string // URL the gateway redirects the customer back to
}

// Client signs outbound payment requests and verifies inbound callbacks.
type Client struct {
    cfg Config
}

// NewClient returns a Client bound to the given gateway configuration.
func NewClient(cfg Config) *Client { return &Client{cfg: cfg} }

// TmnCode exposes the configured merchant code for request building.
func (c *Client) TmnCode() string { return c.cfg.TmnCode }

// ReturnURL exposes the configured customer return URL.
func (c *Client) ReturnURL() string { return c.cfg.ReturnURL }

// BuildPaymentURL serializes params in sorted key order, signs the
// canonical query string with HMAC-SHA512 and returns the full redirect
// URL with vnp_SecureHash appended.  Parameters with empty values are
// left out of both the query and the hash, matching gateway behaviour.
func (c *Client) BuildPaymentURL(params map[string]string) string {
    canonical := canonicalQuery(params)
    hash := c.sign(canonical)
    return c.cfg.BaseURL + "?" + canonical + "&vnp_SecureHash=" + hash
}

// VerifySignature recomputes the keyed hash over every vnp_* parameter
// except the hash fields themselves and compares it to receivedHash in
// constant time.  Any mismatch, including a malformed hex hash, reports
// false; the caller decides the HTTP-level response.
func (c *Client) VerifySignature(params map[string]string, receivedHash string) bool {
    if receivedHash == "" {
        return false
    }
    filtered := make(map[string]string, len(params))
    for k, v := range params {
        if !strings.HasPrefix(k, "vnp_") {
            continue
        }
        if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
            continue
        }
        filtered[k] = v
    }
    mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
    mac.Write([]byte(canonicalQuery(filtered)))
    received, err := hex.DecodeString(receivedHash)
    if err != nil {
        return false
    }
    return hmac.Equal(mac.Sum(nil), received)
}

// VerifyCallback verifies a parsed callback against its own vnp_SecureHash.
func (c *Client) VerifyCallback(cb *Callback) bool {
    return c.VerifySignature(cb.params, cb.SecureHash)
}

func (c *Client) sign(canonical string) string {
    mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
    mac.Write([]byte(canonical))
    return hex.EncodeToString(mac.Sum(nil))
}

// canonicalQuery produces the byte-stable form both sides hash: keys
// sorted ascending, keys and values URL-encoded with the same encoder,
// joined as k=v pairs with '&'.  Encoding before hashing is what keeps
// the hash stable across transports that re-encode the query string.
func canonicalQuery(params map[string]string) string {
    keys := make([]string, 0, len(params))
    for k, v := range params {
        if v == "" {
            continue
        }
        keys = append(keys, k)
    }
    sort.Strings(keys)
    var b strings.Builder
    for i, k := range keys {
        if i > 0 {
            b.WriteByte('&')
        }
        b.WriteString(url.QueryEscape(k))
        b.WriteByte('=')
        b.WriteString(url.QueryEscape(params[k]))
    }
    return b.String()
}
