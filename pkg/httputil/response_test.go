package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		status  int
		message string
	}{
		{"not found", func(w http.ResponseWriter) { WriteError(w, http.StatusNotFound, "tenant not found") }, http.StatusNotFound, "tenant not found"},
		{"challenge", func(w http.ResponseWriter) { WriteChallenge(w, "authentication required") }, http.StatusUnauthorized, "authentication required"},
		{"internal", WriteInternalError, http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.write(rr)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.message, errorMessage(t, rr))
		})
	}
}

func TestWriteChallengeHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteChallenge(rr, "authentication required")
	assert.Equal(t, `Bearer realm="tenantcore"`, rr.Header().Get("WWW-Authenticate"))
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rr, http.StatusOK, map[string]int{"n": 1}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"n":1}`, rr.Body.String())
}
