package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var got string
	h := BearerMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := GetSession(r.Context())
		require.NoError(t, err)
		got = s.Token
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestBearerMiddleware_Header(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reservations/x", nil)
	req.Header.Set("Authorization", "Bearer abc123")

	rec, token := serve(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", token)
}

func TestBearerMiddleware_QueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?session_id=s1&token=q-token", nil)

	rec, token := serve(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "q-token", token)
}

func TestBearerMiddleware_Missing(t *testing.T) {
	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/reservations/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec, token := serve(t, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Empty(t, token)
		assert.Contains(t, rec.Body.String(), `"error_code":401`)
	}
}

func TestGetSession_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetSession(req.Context())
	assert.Error(t, err)
}
