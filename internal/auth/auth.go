package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign computes the hex HMAC-SHA256 of body under secret, the value senders
// put in the signature header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header against the raw request body.
// The header may carry a bare hex digest or a "name=hexdigest" tagged form.
// Comparison is constant time. An empty header never verifies.
func VerifySignature(secret string, body []byte, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if _, after, found := strings.Cut(header, "="); found {
		header = after
	}
	want := Sign(secret, body)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(header)))
}
