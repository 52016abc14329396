package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/core/domain"
)

// Auth checks for one of tokens in a Bearer Authorization header. With no
// tokens configured every request passes.
func Auth(tokens []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		allowed[hash(t)] = true
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Missing Authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid Authorization header format")
			return
		}

		if !allowed[hash(parts[1])] {
			abortUnauthorized(c, "Invalid API Key")
			return
		}

		c.Next()
	}
}

func hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func abortUnauthorized(c *gin.Context, detail string) {
	problem := domain.New(http.StatusUnauthorized, "Unauthorized", detail)
	c.AbortWithStatusJSON(problem.Status, problem)
}
