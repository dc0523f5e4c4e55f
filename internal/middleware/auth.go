package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"telehealth-backend/pkg/jwt"
)

// Identity attaches the authenticated identity from a Bearer token to the
// request context. Requests without a token (or with an invalid one) pass
// through anonymously; handlers that need the identity check for it
// themselves.
func Identity(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			c.Next()
			return
		}

		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}
