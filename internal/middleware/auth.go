package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studentconnect/config"
	"studentconnect/internal/auth"
)

// AuthRequired validates the bearer token and sets userID and accountType in
// context.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := auth.ParseToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("userID", claims.UserID)
		c.Set("accountType", claims.AccountType)
		c.Next()
	}
}

// RequireAccountType checks that the authenticated account is one of the
// allowed types. Must run after AuthRequired.
func RequireAccountType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		at, exists := c.Get("accountType")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		t := at.(string)
		for _, a := range allowed {
			if t == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
