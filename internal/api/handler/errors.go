package handler

import "github.com/gin-gonic/gin"

// API error codes. INVALID_URL, UNSUPPORTED_PLATFORM, and VIDEO_NOT_FOUND
// are non-retryable; SERVER_ERROR is retryable.
const (
	CodeInvalidURL          = "INVALID_URL"
	CodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	CodeVideoNotFound       = "VIDEO_NOT_FOUND"
	CodeServerError         = "SERVER_ERROR"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"code":    code,
		"error":   message,
	})
}
