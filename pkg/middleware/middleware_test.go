package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ftc-platform/pkg/access"
	"ftc-platform/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	keys map[string]*access.Principal
}

func (s stubAuth) Authenticate(_ context.Context, raw string) (*access.Principal, error) {
	if p, ok := s.keys[raw]; ok {
		return p, nil
	}
	return nil, errutil.Unauthorized("invalid api key", nil)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	enforcer, err := access.NewEnforcer()
	require.NoError(t, err)

	auth := stubAuth{keys: map[string]*access.Principal{
		"reader": {KeyID: "1", Scopes: []string{access.ScopeAIEvaluationsRead}},
		"writer": {KeyID: "2", Scopes: []string{access.ScopeAIEvaluationsWrite}},
	}}

	r := gin.New()
	r.Use(Error())
	r.POST("/evals", APIKey(auth), RequireScope(enforcer, access.ResourceAIEvaluations, access.ActionWrite), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	r.GET("/me", UserID(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
	})
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(errutil.NotFound("application not found", nil))
	})
	return r
}

func TestAPIKey(t *testing.T) {
	r := newRouter(t)

	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"invalid", map[string]string{HeaderAPIKey: "nope"}, http.StatusUnauthorized},
		{"insufficient scope", map[string]string{HeaderAPIKey: "reader"}, http.StatusForbidden},
		{"ok", map[string]string{HeaderAPIKey: "writer"}, http.StatusCreated},
		{"bearer", map[string]string{"Authorization": "Bearer writer"}, http.StatusCreated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/evals", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestUserID(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderUserID, "42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestError_HidesInternalCause(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "application not found")
}
