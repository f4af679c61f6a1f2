package http

import (
	"bytes"
	"io"
	"net/http"

	"go.uber.org/zap"

	"error-collector/internal/auth"
)

// SignatureHeader carries the HMAC-SHA256 of the raw request body, either as
// a bare hex digest or in "name=hexdigest" form.
const SignatureHeader = "X-Webhook-Signature"

// VerifySignature is middleware enforcing webhook signature verification
// when a shared secret is configured. The body is consumed for the HMAC and
// re-injected for the handler. An empty secret disables the check entirely.
func VerifySignature(secret string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errResp{"cannot read body"})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			if !auth.VerifySignature(secret, body, r.Header.Get(SignatureHeader)) {
				log.Warn("webhook signature verification failed",
					zap.String("remote", r.RemoteAddr))
				writeJSON(w, http.StatusUnauthorized, errResp{"invalid webhook signature"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
