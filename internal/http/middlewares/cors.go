package middlewares

import (
	"net/http"
	"strings"
)

// WithCORS responde CORS para los orígenes permitidos ("*" = cualquiera) y corta
// los preflight con 204.
func WithCORS(allowed []string) Middleware {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	alist := make([]string, 0, len(allowed))
	wildcard := false
	for _, v := range allowed {
		v = trim(v)
		if v == "*" {
			wildcard = true
		}
		alist = append(alist, v)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := trim(r.Header.Get("Origin"))

			allowOrigin := ""
			switch {
			case wildcard && origin == "":
				allowOrigin = "*"
			case origin != "":
				for _, a := range alist {
					if a == "*" || strings.EqualFold(origin, a) {
						allowOrigin = origin
						break
					}
				}
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if allowOrigin != "" {
				h.Set("Access-Control-Allow-Origin", allowOrigin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, HEAD, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After, WWW-Authenticate")
				h.Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
