package sink

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

// tokenCtxKey is the Gin context key used to store the authenticated project token.
const tokenCtxKey = "airtake_token"

// TokenMiddleware only lets requests through whose X-Airtake-Token is one of tokens.
func TokenMiddleware(tokens map[string]struct{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(models.HeaderToken))
		if _, ok := tokens[token]; !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(tokenCtxKey, token)
		c.Next()
	}
}

// Token returns the authenticated project token from the request context.
func Token(c *gin.Context) string {
	v, _ := c.Get(tokenCtxKey)
	s, _ := v.(string)
	return s
}
