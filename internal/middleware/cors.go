package middleware

import (
	"net/http"
	"strings"
)

var (
	corsAllowMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}, ", ")
	corsAllowHeaders = strings.Join([]string{"Authorization", "Content-Type", RequestIDHeader}, ", ")
)

// CORSMiddleware lets the web client call the API from its own origin
type CORSMiddleware struct {
	allowedOrigins map[string]bool
}

// NewCORSMiddleware creates a new CORS middleware. Listed origins may send
// credentials. With no origins every origin is allowed, but never with
// credentials, since the API is authenticated by bearer token.
func NewCORSMiddleware(allowedOrigins ...string) *CORSMiddleware {
	c := &CORSMiddleware{allowedOrigins: make(map[string]bool, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		c.allowedOrigins[strings.TrimRight(origin, "/")] = true
	}
	return c
}

// Wrap wraps an http.Handler with CORS headers. Preflight requests are
// answered here and never reach authentication.
func (c *CORSMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			c.setHeaders(w.Header(), origin)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) setHeaders(h http.Header, origin string) {
	h.Add("Vary", "Origin")

	listed := c.allowedOrigins[origin]
	if !listed && len(c.allowedOrigins) > 0 {
		return
	}

	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Expose-Headers", RequestIDHeader)
	h.Set("Access-Control-Max-Age", "86400")
	if listed {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}
