package middleware

import (
	"net/http"

	"github.com/platinummonkey/tenantcore/pkg/auth"
	"github.com/platinummonkey/tenantcore/pkg/httputil"
	"github.com/platinummonkey/tenantcore/pkg/observability"
)

// Authenticate verifies the bearer token when one is sent and stores the
// identity in the request context. Requests without a token continue
// anonymously so the gate can issue the challenge; an invalid token is
// rejected here.
func Authenticate(verifier auth.Verifier, logger *observability.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
				httputil.WriteChallenge(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
