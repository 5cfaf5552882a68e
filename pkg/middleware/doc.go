// Package middleware provides the HTTP side of tenant authorization.
//
// Authenticate resolves the bearer token into an auth.Identity. TenantedAuthorize
// guards a handler with a declared permission list and maps the decision to a
// response:
//
//	allowed                  -> handler runs
//	no identity              -> 401 with a bearer challenge
//	PermissionParseFailure   -> 500, logged as critical
//	TenantNotFound           -> 404
//	any other denial         -> 401
//	decision channel failure -> 401
//
// Typical wiring with gorilla/mux:
//
//	r := router.PathPrefix("/api/v1/tenants/{tenant_id}").Subrouter()
//	r.Use(middleware.Authenticate(verifier, logger))
//	r.Handle("/aircraft", middleware.TenantedAuthorize(decider, logger, metrics, "EditAircraft")(h))
package middleware
