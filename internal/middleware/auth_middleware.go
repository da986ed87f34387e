package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "worklog/backend/internal/errors"
	"worklog/backend/internal/service"
)

const SubjectContextKey = "subject"

func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			writeError(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			writeError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		subject, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(SubjectContextKey, subject)
		c.Next()
	}
}

// Subject returns the authenticated token subject, or "" when the request was not authenticated.
func Subject(c *gin.Context) string {
	return c.GetString(SubjectContextKey)
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	body := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		body["details"] = apiErr.Details
	}
	c.Header("WWW-Authenticate", `Bearer realm="worklog"`)
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": body})
}
