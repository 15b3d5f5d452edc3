package vnpay

// responseMessages maps the gateway's fixed response-code vocabulary to
// human-readable text for the interactive channel.  The table is a
// static lookup, not business logic; success is still decided by
// Callback.Succeeded, never by this map.
var responseMessages = map[string]string{
    "00": "Transaction successful",
    "07": "Amount deducted, transaction flagged as suspicious",
    "09": "Card or account not registered for online banking",
    "10": "Card or account details verified incorrectly more than 3 times",
    "11": "Payment window expired, please retry the transaction",
    "12": "Card or account is locked",
    "13": "Incorrect one-time password (OTP)",
    "24": "Transaction cancelled by the customer",
    "51": "Insufficient account balance",
    "65": "Daily transaction limit exceeded",
    "75": "Issuing bank is under maintenance",
    "79": "Payment password entered incorrectly too many times",
}

// ResponseMessage renders a gateway response code.  Unknown codes fall
// back to a generic failure message.
func ResponseMessage(code string) string {
    if msg, ok := responseMessages[code]; ok {
        return msg
    }
    return "Transaction failed"
}
