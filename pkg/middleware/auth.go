package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKeyType string

const storeIDKey contextKeyType = "store_id"

// StoreTokenValidator validates an admin access token and returns the
// platform store ID it belongs to. The admin API injects its own lookup
// against the stored OAuth credentials.
type StoreTokenValidator func(ctx context.Context, token string) (string, error)

// StoreAuth validates the X-Store-Token header and injects the resolved
// store ID into the request context. Requests without a valid token get 401.
func StoreAuth(validate StoreTokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Store-Token")
			if token == "" {
				writeAuthError(w, "missing store token")
				return
			}

			storeID, err := validate(r.Context(), token)
			if err != nil {
				writeAuthError(w, "invalid store token")
				return
			}

			ctx := context.WithValue(r.Context(), storeIDKey, storeID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StoreIDFromContext extracts the authenticated store ID from the request context.
func StoreIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(storeIDKey).(string); ok {
		return id
	}
	return ""
}

// WithStoreID returns a context carrying the given store ID. Used by tests
// and by the webhook handlers, which authenticate via HMAC instead of tokens.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeIDKey, storeID)
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
