package httputil

import (
	"encoding/json"
	"net/http"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": message}. Encoding failures are dropped since
// the status line is already out.
func WriteError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, errorBody{Error: message})
}

// WriteChallenge answers 401 with a bearer challenge so clients know to
// authenticate rather than retry.
func WriteChallenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tenantcore"`)
	WriteError(w, http.StatusUnauthorized, message)
}

// WriteInternalError never echoes the cause; callers log it.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "internal server error")
}
