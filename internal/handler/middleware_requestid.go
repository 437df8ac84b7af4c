package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/angeloszaimis/azure-vote/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags the request with the caller's X-Request-ID or a fresh UUID
// and stores a logger carrying it in the request context.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			scoped := log.With(slog.String("request_id", requestID))
			r = r.WithContext(logger.WithContext(r.Context(), scoped))

			w.Header().Set(requestIDHeader, requestID)
			next.ServeHTTP(w, r)
		})
	}
}
