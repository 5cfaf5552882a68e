package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/tenantcore/pkg/auth"
	"github.com/platinummonkey/tenantcore/pkg/authz"
	"github.com/platinummonkey/tenantcore/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedDecider struct{ decision authz.Decision }

func (d fixedDecider) Authorize(context.Context, authz.Request) (authz.Decision, error) {
	return d.decision, nil
}

func TestRouter_AccessEndpoint(t *testing.T) {
	verifier, err := newVerifier(context.Background(), config.IdentityConfig{JWTSecret: strings.Repeat("x", 32)})
	require.NoError(t, err)
	hmac := verifier.(*auth.HMACVerifier)
	token, err := hmac.Issue("user-1", "", time.Minute)
	require.NoError(t, err)

	t.Run("allowed", func(t *testing.T) {
		router := newRouter(fixedDecider{authz.Allow()}, verifier, time.Second, nil, nil)
		r := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/tenant-1/access", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, r)

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"user_id": "user-1", "tenant_id": "tenant-1"}, body)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		router := newRouter(fixedDecider{authz.Deny(authz.TenantNotFound, "")}, verifier, time.Second, nil, nil)
		r := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/tenant-1/access", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		router := newRouter(fixedDecider{authz.Allow()}, verifier, time.Second, nil, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tenants/tenant-1/access", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestNewDecider(t *testing.T) {
	local := &authz.Service{}

	d, closeFn, err := newDecider(context.Background(), config.AuthzConfig{}, local)
	require.NoError(t, err)
	closeFn()
	assert.Same(t, local, d)

	d, closeFn, err = newDecider(context.Background(), config.AuthzConfig{RemoteAddr: "localhost:9000", Timeout: time.Second}, local)
	require.NoError(t, err)
	defer closeFn()
	_, ok := d.(*authz.Client)
	assert.True(t, ok)
}
