// Package httpserver owns the http.Server construction so every binary
// serves with the same timeout posture.
package httpserver

import (
	"net/http"
	"time"
)

// Timeouts sized for the API's request profile: handlers are in-memory or
// single-query, so anything slow is a stuck client, not a slow endpoint.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds the server for addr. Shutdown is the caller's job; see the
// errgroup pair in cmd/server.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
