package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func passing(context.Context) error { return nil }

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker("test").AddCheck("postgres", true, failing("down"))

	rr := httptest.NewRecorder()
	checker.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, StatusHealthy, body["status"])
}

func TestHealthChecker_Check(t *testing.T) {
	tests := []struct {
		name     string
		critical error
		optional error
		want     string
	}{
		{"all healthy", nil, nil, StatusHealthy},
		{"optional down degrades", nil, errors.New("redis gone"), StatusDegraded},
		{"critical down", errors.New("pg gone"), nil, StatusUnhealthy},
		{"both down", errors.New("pg gone"), errors.New("redis gone"), StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHealthChecker("v1").
				AddCheck("postgres", true, func(context.Context) error { return tt.critical }).
				AddCheck("redis", false, func(context.Context) error { return tt.optional })

			status := checker.Check(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, "v1", status.Version)
			assert.Len(t, status.Dependencies, 2)
			assert.True(t, status.Dependencies["postgres"].Critical)
			if tt.optional != nil {
				assert.Equal(t, "redis gone", status.Dependencies["redis"].Message)
			}
		})
	}
}

func TestDatabaseCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, DatabaseCheck(db)(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.EqualError(t, DatabaseCheck(db)(context.Background()), "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCheck(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	assert.NoError(t, RedisCheck(client)(context.Background()))
	mr.Close()
	assert.Error(t, RedisCheck(client)(context.Background()))
}

func TestRegisterHealthRoutes(t *testing.T) {
	checker := NewHealthChecker("test").
		AddCheck("postgres", true, failing("down")).
		AddCheck("redis", false, passing)

	router := mux.NewRouter()
	RegisterHealthRoutes(router, checker)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
