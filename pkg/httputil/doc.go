// Package httputil holds the small set of HTTP helpers shared by the API
// router and the authorization gate.
//
// Error bodies are always {"error": "..."}:
//
//	httputil.WriteError(w, http.StatusNotFound, "tenant not found")
//	httputil.WriteChallenge(w, "authentication required")
//
// WriteInternalError never echoes the underlying error; log it instead.
//
// Every router installs the request id and panic recovery middleware first:
//
//	router.Use(httputil.RecoveryMiddleware, httputil.RequestIDMiddleware(logger))
package httputil
