package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/platform"
	"github.com/kaito/tubegrab/internal/service"
)

// ValidateHandler serves URL validation and the platform catalog.
type ValidateHandler struct {
	platforms service.PlatformStore
	cache     *cache.Cache
	logger    *logger.Logger
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(platforms service.PlatformStore, c *cache.Cache, log *logger.Logger) *ValidateHandler {
	return &ValidateHandler{platforms: platforms, cache: c, logger: log}
}

// ValidateRequest is the validation API request.
type ValidateRequest struct {
	URL string `json:"url" binding:"required"`
}

// Validate handles POST /validate. Results are cached keyed by a hash of
// the URL; validation itself is pure so the cache only saves the catalog
// lookup.
func (h *ValidateHandler) Validate(c *gin.Context) {
	ctx := c.Request.Context()

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidURL, "url is required")
		return
	}

	result := h.validateURL(ctx, req.URL)
	if !result.IsValid {
		c.JSON(http.StatusOK, gin.H{
			"isValid": false,
			"error":   result.Error,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isValid":       true,
		"platform":      result.Platform,
		"videoId":       result.VideoID,
		"normalizedUrl": result.NormalizedURL,
	})
}

// validateURL runs the cache-through validation used by both the validate
// and convert endpoints.
func (h *ValidateHandler) validateURL(ctx context.Context, url string) *cache.ValidationResult {
	if res, ok := h.cache.GetValidation(ctx, url); ok {
		return res
	}

	res := h.computeValidation(ctx, url)
	h.cache.SetValidation(ctx, url, res)
	return res
}

func (h *ValidateHandler) computeValidation(ctx context.Context, url string) *cache.ValidationResult {
	parsed, err := platform.Validate(url)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupportedPlatform) {
			return &cache.ValidationResult{IsValid: false, Error: "this platform is not supported", ErrorCode: CodeUnsupportedPlatform}
		}
		return &cache.ValidationResult{IsValid: false, Error: "invalid or malformed video URL", ErrorCode: CodeInvalidURL}
	}

	// The catalog can disable a platform the validator still recognizes
	entry, err := h.platforms.GetByName(ctx, parsed.Platform)
	if err != nil {
		logger.CtxError(ctx, "Platform catalog lookup failed: %v", err)
		return &cache.ValidationResult{IsValid: false, Error: "validation temporarily unavailable", ErrorCode: CodeServerError}
	}
	if entry == nil || !entry.Enabled {
		return &cache.ValidationResult{IsValid: false, Error: "this platform is not supported", ErrorCode: CodeUnsupportedPlatform}
	}

	return &cache.ValidationResult{
		IsValid:       true,
		Platform:      parsed.Platform,
		VideoID:       parsed.VideoID,
		NormalizedURL: parsed.NormalizedURL,
	}
}

// Platforms handles GET /platforms with the long-TTL catalog cache.
func (h *ValidateHandler) Platforms(c *gin.Context) {
	ctx := c.Request.Context()

	if platforms, ok := h.cache.GetPlatforms(ctx); ok {
		c.JSON(http.StatusOK, gin.H{"platforms": platforms})
		return
	}

	platforms, err := h.platforms.List(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to load platforms")
		return
	}
	h.cache.SetPlatforms(ctx, platforms)

	c.JSON(http.StatusOK, gin.H{"platforms": platforms})
}
