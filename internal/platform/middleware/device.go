package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"soulpass/pkg/requestcontext"
)

// Device summarizes the client platform from the User-Agent header and makes
// it available to event emission for indexer forensics.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ua := useragent.New(raw)
		name, version := ua.Browser()
		device := ua.OS()
		if name != "" {
			device = name + "/" + version + " " + device
		}
		if ua.Mobile() {
			device = "mobile " + device
		}

		ctx := requestcontext.WithDevice(r.Context(), device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
