package auth

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/edgetag/observe"
)

// Middleware rejects requests that fail authn with 401 and attaches the
// identity of accepted ones to the request context. Internal errors
// answer 500.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := a.Authenticate(r.Context(), FromHTTP(r))
			if err != nil {
				logger.Error(r.Context(), "admin authentication failed", observe.F("error", err))
				writeError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}
			if !res.Authenticated {
				if res.Error == nil {
					res.Error = ErrInvalidCredentials
				}
				logger.Warn(r.Context(), "admin request rejected",
					observe.F("method", string(res.Method)),
					observe.F("reason", res.Error),
					observe.F("remote", r.RemoteAddr),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="edgetag"`)
				writeError(w, http.StatusUnauthorized, res.Error.Error())
				return
			}
			if res.Identity.IsExpired() {
				writeError(w, http.StatusUnauthorized, ErrTokenExpired.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Identity)))
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
