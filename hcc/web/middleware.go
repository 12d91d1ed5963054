package web

import (
	"net/http"

	"github.com/seenhealth/hccinfhir/hcc/servicemux"
)

var securityHeaders = map[string]string{
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains; preload",
	"Cache-Control":             "no-cache; no-store; must-revalidate; max-age=0",
	"Pragma":                    "no-cache",
	"X-Content-Type-Options":    "nosniff",
}

func ConnectionClose(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}

// SecurityHeader attaches the transport-security headers on TLS-terminated
// requests. Plain HTTP is only reachable through the redirect listener and
// local development.
func SecurityHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if servicemux.IsHTTPS(r) {
			for name, value := range securityHeaders {
				w.Header().Set(name, value)
			}
		}
		next.ServeHTTP(w, r)
	})
}
