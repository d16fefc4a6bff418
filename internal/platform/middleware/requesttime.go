package middleware

import (
	"net/http"
	"time"

	"soulpass/pkg/requestcontext"
)

// RequestTime captures one "now" per request so every timestamp taken while
// serving it agrees, from domain records to emitted events.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
