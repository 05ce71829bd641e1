package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"helperhand-server/apperror"
	"helperhand-server/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	fn func(token string) (types.Principal, error)
}

func (f fakeAuth) Authenticate(token string) (types.Principal, error) { return f.fn(token) }

type fakeResolver struct {
	fn func(ctx context.Context, p types.Principal) (types.Principal, error)
}

func (f fakeResolver) Resolve(ctx context.Context, p types.Principal) (types.Principal, error) {
	return f.fn(ctx, p)
}

func tokenAuth() fakeAuth {
	return fakeAuth{fn: func(token string) (types.Principal, error) {
		switch token {
		case "customer":
			return types.Principal{ID: "c1", Kind: types.KindCustomer}, nil
		case "admin":
			return types.Principal{ID: "a1", Kind: types.KindAdmin}, nil
		default:
			return types.Principal{}, apperror.Unauthorized("Invalid or expired token")
		}
	}}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		p, _ := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"id": p.ID, "name": p.Name})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	resolver := fakeResolver{fn: func(_ context.Context, p types.Principal) (types.Principal, error) {
		p.Name = "Resolved " + p.ID
		return p, nil
	}}
	r := newRouter(AuthMiddleware(tokenAuth(), resolver))

	t.Run("missing header", func(t *testing.T) {
		w := do(r, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("not bearer", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "Authorization", "Token customer").Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "Authorization", "Bearer nope").Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := do(r, "Authorization", "Bearer customer")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Resolved c1")
	})
}

func TestAuthMiddleware_ResolverFailures(t *testing.T) {
	gone := newRouter(AuthMiddleware(tokenAuth(), fakeResolver{fn: func(context.Context, types.Principal) (types.Principal, error) {
		return types.Principal{}, apperror.Unauthorized("Account no longer exists")
	}}))
	assert.Equal(t, http.StatusUnauthorized, do(gone, "Authorization", "Bearer customer").Code)

	broken := newRouter(AuthMiddleware(tokenAuth(), fakeResolver{fn: func(context.Context, types.Principal) (types.Principal, error) {
		return types.Principal{}, apperror.Internal("db", assert.AnError)
	}}))
	assert.Equal(t, http.StatusInternalServerError, do(broken, "Authorization", "Bearer customer").Code)
}

func TestRequireKinds(t *testing.T) {
	r := newRouter(AuthMiddleware(tokenAuth(), nil), RequireKinds(types.KindAdmin))

	assert.Equal(t, http.StatusForbidden, do(r, "Authorization", "Bearer customer").Code)
	assert.Equal(t, http.StatusOK, do(r, "Authorization", "Bearer admin").Code)
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/ws", WebSocketAuthMiddleware(tokenAuth(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=customer", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	r := newRouter(rl.Middleware(60))

	assert.Equal(t, http.StatusOK, do(r, "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "", "").Code)

	rl.Cleanup(0)
	assert.Equal(t, http.StatusOK, do(r, "", "").Code)
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	r := newRouter(RequestIDMiddleware(), SecurityHeadersMiddleware())

	w := do(r, RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = do(r, "", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestInputValidationMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/x", InputValidationMiddleware(16), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"this body is too long"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
