// Package middleware holds the gin middleware shared by the front and admin routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/identity"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/security"
	"github.com/router-for-me/DiaryHub/internal/session"
)

// scopeKey is the gin context key of the request session scope.
const scopeKey = "sessionScope"

// Session resolves the bearer token into a request scope. Requests without a
// token stay anonymous; a bad or stale token is rejected.
func Session(users *identity.Store, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Set(scopeKey, session.Anonymous())
			c.Next()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, errToken := security.ParseSessionToken(jwtCfg.Secret, token)
		if errToken != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		scope := session.NewScope(&models.Session{UID: claims.UID, IsAdmin: claims.IsAdmin}, nil)
		if _, errResolve := users.Resolve(scope); errResolve != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errResolve.Error()})
			return
		}
		c.Set(scopeKey, scope)
		c.Next()
	}
}

// RequireSession rejects anonymous requests.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Scope(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": identity.ErrNotLoggedIn.Error()})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests without the admin capability.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := Scope(c)
		if !scope.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": identity.ErrNotLoggedIn.Error()})
			return
		}
		if !scope.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// Scope returns the request scope, anonymous when Session did not run.
func Scope(c *gin.Context) *session.Scope {
	if v, ok := c.Get(scopeKey); ok {
		if scope, okScope := v.(*session.Scope); okScope {
			return scope
		}
	}
	return session.Anonymous()
}

// SetScope installs scope on the request.
func SetScope(c *gin.Context, scope *session.Scope) {
	c.Set(scopeKey, scope)
}
