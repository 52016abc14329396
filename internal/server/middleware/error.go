package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"go.uber.org/zap"
)

// ErrorHandler renders the last handler error as an RFC 9457 problem.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		problem := domain.ProblemFrom(err)

		if problem.Log != nil {
			logger.Error("Internal error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(problem.Log),
			)
		}

		if problem.Instance == "" {
			problem.Instance = c.Request.URL.Path
		}

		// RFC 9457 dictates the json is at the root
		c.Header("Content-Type", "application/problem+json")
		c.JSON(problem.Status, problem)
		c.Abort()
	}
}
