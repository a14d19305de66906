package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// AdminAuth enforces bearer JWT tokens carrying the admin role.
func AdminAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil || claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches admin claims when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearer(c); ok {
			if claims, err := Parse(tokenStr, signingKey, issuer); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims set by AdminAuth or OptionalAuth.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// IsAdmin reports whether the request carries admin claims.
func IsAdmin(c *gin.Context) bool {
	claims, ok := ClaimsFrom(c)
	return ok && claims.Role == RoleAdmin
}

func bearer(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	tokenStr := strings.TrimSpace(authz[len("bearer "):])
	return tokenStr, tokenStr != ""
}
