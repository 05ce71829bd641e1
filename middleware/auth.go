package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"helperhand-server/apperror"
	"helperhand-server/types"
)

// PrincipalKey is the gin context key holding the authenticated types.Principal.
const PrincipalKey = "principal"

// Authenticator turns a bearer token into a principal.
type Authenticator interface {
	Authenticate(token string) (types.Principal, error)
}

// PrincipalResolver loads the account behind a token principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, p types.Principal) (types.Principal, error)
}

func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

func authenticate(c *gin.Context, auth Authenticator, resolver PrincipalResolver, token string) bool {
	p, err := auth.Authenticate(token)
	if err != nil {
		abortWith(c, http.StatusUnauthorized, apperror.KindUnauthorized.String(), apperror.Message(err))
		return false
	}

	if resolver != nil {
		p, err = resolver.Resolve(c.Request.Context(), p)
		if err != nil {
			if apperror.KindOf(err) == apperror.KindUnauthorized {
				abortWith(c, http.StatusUnauthorized, apperror.KindUnauthorized.String(), apperror.Message(err))
				return false
			}
			log.Printf("❌ Failed to resolve principal: %v", err)
			abortWith(c, http.StatusInternalServerError, apperror.KindInternal.String(), "Internal server error")
			return false
		}
	}

	c.Set(PrincipalKey, p)
	return true
}

// AuthMiddleware validates the bearer token of either credential space and sets the principal.
func AuthMiddleware(auth Authenticator, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, http.StatusUnauthorized, apperror.KindUnauthorized.String(), "Authorization token required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortWith(c, http.StatusUnauthorized, apperror.KindUnauthorized.String(), "Token must be in format: Bearer <token>")
			return
		}

		if authenticate(c, auth, resolver, tokenString) {
			c.Next()
		}
	}
}

// WebSocketAuthMiddleware reads the token from the query string, since browsers
// cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(auth Authenticator, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			abortWith(c, http.StatusUnauthorized, apperror.KindUnauthorized.String(), "Authorization token required")
			return
		}
		if authenticate(c, auth, resolver, tokenString) {
			c.Next()
		}
	}
}

// RequireKinds lets only the listed principal kinds through.
func RequireKinds(kinds ...types.PrincipalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, apperror.KindUnauthorized.String(), "Authorization token required")
			return
		}
		for _, k := range kinds {
			if p.Kind == k {
				c.Next()
				return
			}
		}
		abortWith(c, http.StatusForbidden, apperror.KindForbidden.String(), "Access denied for "+p.Kind.String()+" accounts")
	}
}

// GetPrincipal returns the principal set by AuthMiddleware.
func GetPrincipal(c *gin.Context) (types.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return types.Principal{}, false
	}
	p, ok := v.(types.Principal)
	return p, ok
}
