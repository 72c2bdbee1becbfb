package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	identityKey = "identity"
	userIDKey   = "user_id"
)

// Middleware resolves the caller on every request. Anonymous requests pass
// through; handlers decide whether they need an identity. A presented but
// invalid token is rejected.
func Middleware(provider IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := provider.CurrentUser(c.Request)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, ErrInvalidToken) {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{
				"message": "Invalid or expired token",
				"code":    "invalid-token",
			})
			return
		}
		if identity != nil {
			c.Set(identityKey, identity)
			c.Set(userIDKey, identity.ID)
		}
		c.Next()
	}
}

// RequireUser aborts with 401 unless an identity was resolved.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if FromContext(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Authentication required",
				"code":    "login-required",
			})
			return
		}
		c.Next()
	}
}

// FromContext returns the identity resolved by Middleware, or nil.
func FromContext(c *gin.Context) *Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(*Identity); ok {
			return identity
		}
	}
	return nil
}
