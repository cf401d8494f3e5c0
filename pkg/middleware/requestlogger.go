package middleware

import (
	"log/slog"
	"net/http"

	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

// UserHeader identifies the acting CRM user for log enrichment. It is not an
// authentication mechanism.
const UserHeader = "X-User-ID"

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, user_id, trace_id, and span_id and stores it in context.
// Handlers retrieve it with logger.FromContext(ctx).
//
// Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := r.Header.Get(UserHeader); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
