package middleware

import "net/http"

// NoStore marks responses as uncacheable. Token-bearing responses must never
// be stored by shared caches or the browser.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}
