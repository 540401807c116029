package handler

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/storage"
)

// FileHandler serves converted artifacts straight from object storage for
// deployments without a public bucket URL or CDN in front.
type FileHandler struct {
	storage storage.ObjectStorage
	logger  *logger.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(store storage.ObjectStorage, log *logger.Logger) *FileHandler {
	return &FileHandler{storage: store, logger: log}
}

// Download handles GET /download/:fileName as an attachment.
func (h *FileHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	key := sanitizeKey(c.Param("fileName"))
	if key == "" {
		respondError(c, http.StatusBadRequest, CodeInvalidURL, "invalid file name")
		return
	}

	info, err := h.storage.Stat(ctx, key)
	if err != nil {
		logger.CtxError(ctx, "Failed to stat object %s: %v", key, err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to load file")
		return
	}
	if info == nil {
		respondError(c, http.StatusNotFound, CodeVideoNotFound, "file not found")
		return
	}

	body, err := h.storage.Download(ctx, key)
	if err != nil || body == nil {
		logger.CtxError(ctx, "Failed to download object %s: %v", key, err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to load file")
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key))
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Header("Accept-Ranges", "bytes")
	c.DataFromReader(http.StatusOK, info.Size, contentTypeOrDefault(info), body, nil)
}

// Stream handles GET /stream/:fileName with single-range requests, so
// browser media elements can seek within mp4 artifacts.
func (h *FileHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	key := sanitizeKey(c.Param("fileName"))
	if key == "" {
		respondError(c, http.StatusBadRequest, CodeInvalidURL, "invalid file name")
		return
	}

	info, err := h.storage.Stat(ctx, key)
	if err != nil {
		logger.CtxError(ctx, "Failed to stat object %s: %v", key, err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to load file")
		return
	}
	if info == nil {
		respondError(c, http.StatusNotFound, CodeVideoNotFound, "file not found")
		return
	}

	c.Header("Accept-Ranges", "bytes")

	start, end, ok := parseRange(c.GetHeader("Range"), info.Size)
	if !ok {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	var body io.ReadCloser
	length := info.Size
	status := http.StatusOK
	if start >= 0 {
		body, err = h.storage.DownloadRange(ctx, key, start, end)
		length = end - start + 1
		status = http.StatusPartialContent
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, info.Size))
	} else {
		body, err = h.storage.Download(ctx, key)
	}
	if err != nil || body == nil {
		logger.CtxError(ctx, "Failed to download object %s: %v", key, err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to load file")
		return
	}
	defer body.Close()

	c.DataFromReader(status, length, contentTypeOrDefault(info), body, nil)
}

// parseRange parses a single "bytes=start-end" range against size. It
// returns start=-1 when no Range header was sent, and ok=false when the
// header is present but unsatisfiable. Multi-range requests fall back to
// the full object.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	if header == "" {
		return -1, -1, true
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return -1, -1, true
	}
	if size == 0 {
		// No byte of an empty object is addressable
		return 0, 0, false
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	if startStr == "" {
		// Suffix range: last N bytes
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}

// sanitizeKey rejects path traversal in user-supplied object keys.
func sanitizeKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") || strings.Contains(name, "/") {
		return ""
	}
	return path.Base(name)
}

func contentTypeOrDefault(info *storage.ObjectInfo) string {
	if info.ContentType != "" {
		return info.ContentType
	}
	switch {
	case strings.HasSuffix(info.Key, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(info.Key, ".mp4"):
		return "video/mp4"
	}
	return "application/octet-stream"
}
