package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func authRouter(keys map[string]string) http.Handler {
	mux := chi.NewRouter()
	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(APIKeyAuth(keys))
		rt.Use(RequireValidTenant)
		rt.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(GetTenantFromContext(r.Context())))
		})
	})
	return mux
}

func TestAPIKeyAuth(t *testing.T) {
	h := authRouter(map[string]string{"acme": "k-acme", "globex": "k-globex"})

	cases := []struct {
		name   string
		path   string
		auth   string
		status int
		body   string
	}{
		{"missing header", "/v1/acme/whoami", "", http.StatusUnauthorized, ""},
		{"bad key", "/v1/acme/whoami", "Bearer nope", http.StatusUnauthorized, ""},
		{"ok bearer", "/v1/acme/whoami", "Bearer k-acme", http.StatusOK, "acme"},
		{"ok raw", "/v1/globex/whoami", "k-globex", http.StatusOK, "globex"},
		{"tenant mismatch", "/v1/globex/whoami", "Bearer k-acme", http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	h := authRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/whoami", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/bad%20tenant/whoami", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
