package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, store_id, trace_id, and span_id, then stores it in
// context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// This middleware should be mounted AFTER RequestLogging (which sets
// correlation_id) and Tracing (which sets the OpenTelemetry span context).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Pick up the store ID set by StoreAuth, falling back to the
			// store query parameter used by the public checkout endpoints.
			storeID := StoreIDFromContext(ctx)
			if storeID == "" {
				storeID = r.URL.Query().Get("store_id")
			}
			if storeID != "" {
				ctx = logger.WithStoreID(ctx, storeID)
			}

			enriched := logger.WithContext(ctx, base)

			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
