package http

import (
	"mime"
	"net/http"

	"github.com/Arifulit/job-portal-server/pkg/httputil"
)

// ContentTypeJSON rejects bodies declared as anything other than
// application/json. Requests without a Content-Type header pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				httputil.WriteFailure(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
