package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/angeloszaimis/azure-vote/pkg/logger"
)

// MarkPlaintext flags requests that did not arrive over TLS, directly or via
// a terminating proxy, so the CSRF check skips its HTTPS-only Referer test.
func MarkPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

// CSRF rejects state-changing requests without a valid token with 403.
func CSRF(key []byte, secureCookie bool, fallback *slog.Logger) func(http.Handler) http.Handler {
	return csrf.Protect(key,
		csrf.Secure(secureCookie),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := "unknown"
			if err := csrf.FailureReason(r); err != nil {
				reason = err.Error()
			}
			logger.FromContext(r.Context(), fallback).Warn("Rejected request", slog.String("reason", reason))
			http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
		})),
	)
}
