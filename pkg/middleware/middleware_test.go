// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shelterops/bedhold/pkg/auth"
	"github.com/shelterops/bedhold/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRequestIDSetsHeaderAndContext(t *testing.T) {
	var seen string
	handler := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/beds/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestWithRecoveryConvertsPanicToInternalError(t *testing.T) {
	handler := WithRecovery(logging.NoOpLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("bed registry corrupted")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/beds/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWithAuthRejectsMissingCredential(t *testing.T) {
	v := auth.NewTokenVerifier(map[string]auth.Principal{"tok": {Role: auth.RoleStaff}})
	handler := WithAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid credential")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/beds/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithAuthRejectsViewerWriteAttempt(t *testing.T) {
	v := auth.NewTokenVerifier(map[string]auth.Principal{"tok": {Role: auth.RoleViewer}})
	handler := WithAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an under-privileged write")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/reservations/", nil)
	req.Header.Set("Authorization", "Bearer tok")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWithAuthAllowsStaffWrite(t *testing.T) {
	v := auth.NewTokenVerifier(map[string]auth.Principal{"tok": {Role: auth.RoleStaff}})
	ran := false
	handler := WithAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		p, ok := PrincipalFromContext(r.Context())
		assert.True(t, ok)
		assert.True(t, p.CanWrite())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/reservations/", nil)
	req.Header.Set("Authorization", "Bearer tok")

	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, ran)
}

func TestChainRunsOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := Chain(mark("outer"), mark("inner"))
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
