package auth

import (
	"encoding/json"
	"net/http"

	"inventory_admin/internal/models"
)

// RequireSession is an HTTP middleware that rejects requests while no operator is signed in.
// authenticated is consulted on every request, so a session that expires or is cleared
// elsewhere takes effect immediately.
func RequireSession(authenticated func() bool) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !authenticated() {
				writeErrorResponse(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			h.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// writeErrorResponse writes a JSON-formatted error response to the HTTP response writer.
func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}
