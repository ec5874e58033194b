package middleware

import (
	"net/http"
	"strings"

	"github.com/asmaravianti/ecg-compression/pkg/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and exposes the team identity
// to handlers. Sessions are stateless: no lookup beyond signature and
// expiry checks.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("email", claims.Email)
		c.Set("teamName", claims.TeamName)
		c.Next()
	}
}

// TeamName returns the authenticated team name set by AuthMiddleware.
func TeamName(c *gin.Context) string {
	v, _ := c.Get("teamName")
	s, _ := v.(string)
	return s
}

// Email returns the authenticated email set by AuthMiddleware.
func Email(c *gin.Context) string {
	v, _ := c.Get("email")
	s, _ := v.(string)
	return s
}
