// Package middleware provides the HTTP middleware in front of the terminal API.
//
// CORS allows websocket origins so browser terminals can attach from the
// configured frontends. RateLimit keeps a token bucket per client IP and
// drops buckets that have been idle for IdleTimeout.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
