// Package auth turns bearer tokens into caller identities.
//
// A Verifier checks a raw token and returns an Identity carrying the user id
// (the "sub" claim) and, when present, the tenant the token was issued for
// (the "tid" claim). Two verifiers are provided:
//
//	HMACVerifier - HS256 tokens signed with a shared secret
//	OIDCVerifier - ID tokens from an OpenID Connect issuer
//
// The HTTP middleware in pkg/middleware stores the Identity in the request
// context; IdentityFromContext reads it back.
package auth
