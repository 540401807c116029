package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaito/tubegrab/internal/domain"
)

// Key namespaces. The cache is a read-through accelerator, never the source
// of truth: a miss or a decode failure triggers recomputation.
const (
	nsMetadata   = "metadata:"
	nsStatus     = "status:"
	nsURL        = "url:"
	nsRate       = "rate:"
	keyPlatforms = "platforms"
)

// Default TTLs per namespace.
const (
	TTLPlatforms  = 12 * time.Hour
	TTLValidation = time.Hour
	TTLMetadata   = 6 * time.Hour
	TTLStatus     = 30 * time.Second
)

// ValidationResult is the cached outcome of URL validation. ErrorCode
// carries the machine-readable API error code for invalid results so that
// callers do not have to match on the human-readable message.
type ValidationResult struct {
	IsValid       bool   `json:"isValid"`
	Platform      string `json:"platform,omitempty"`
	VideoID       string `json:"videoId,omitempty"`
	NormalizedURL string `json:"normalizedUrl,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"errorCode,omitempty"`
}

// Cache provides typed read-through access over a Store.
type Cache struct {
	store Store
}

// New creates a Cache on top of the given store.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Store exposes the underlying store for components that manage their own keys.
func (c *Cache) Store() Store {
	return c.store
}

func (c *Cache) getJSON(ctx context.Context, key string, out interface{}) bool {
	b, err := c.store.Get(ctx, key)
	if err != nil {
		return false
	}
	// Decode failure is a miss, never an error surfaced to the caller
	if err := json.Unmarshal(b, out); err != nil {
		_ = c.store.Delete(ctx, key)
		return false
	}
	return true
}

func (c *Cache) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.store.Set(ctx, key, b, ttl)
}

// GetStatus returns the cached status snapshot for a job id, or false on miss.
func (c *Cache) GetStatus(ctx context.Context, jobID string) (*domain.StatusSnapshot, bool) {
	var snap domain.StatusSnapshot
	if !c.getJSON(ctx, nsStatus+jobID, &snap) {
		return nil, false
	}
	return &snap, true
}

// SetStatus stores a job status snapshot.
func (c *Cache) SetStatus(ctx context.Context, snap *domain.StatusSnapshot) {
	c.setJSON(ctx, nsStatus+snap.JobID, snap, TTLStatus)
}

// InvalidateStatus drops the cached snapshot for a job id.
func (c *Cache) InvalidateStatus(ctx context.Context, jobID string) {
	_ = c.store.Delete(ctx, nsStatus+jobID)
}

// GetMetadata returns cached video metadata keyed by the extracted video id.
func (c *Cache) GetMetadata(ctx context.Context, videoID string) (*domain.VideoMetadata, bool) {
	var meta domain.VideoMetadata
	if !c.getJSON(ctx, nsMetadata+videoID, &meta) {
		return nil, false
	}
	return &meta, true
}

// SetMetadata stores video metadata keyed by video id.
func (c *Cache) SetMetadata(ctx context.Context, videoID string, meta *domain.VideoMetadata) {
	c.setJSON(ctx, nsMetadata+videoID, meta, TTLMetadata)
}

// GetValidation returns the cached validation result for a URL.
// URLs are hashed to bound key length.
func (c *Cache) GetValidation(ctx context.Context, url string) (*ValidationResult, bool) {
	var res ValidationResult
	if !c.getJSON(ctx, nsURL+hashURL(url), &res) {
		return nil, false
	}
	return &res, true
}

// SetValidation stores a validation result for a URL.
func (c *Cache) SetValidation(ctx context.Context, url string, res *ValidationResult) {
	c.setJSON(ctx, nsURL+hashURL(url), res, TTLValidation)
}

// GetPlatforms returns the cached platform catalog, or false on miss.
func (c *Cache) GetPlatforms(ctx context.Context) ([]domain.Platform, bool) {
	var platforms []domain.Platform
	if !c.getJSON(ctx, keyPlatforms, &platforms) {
		return nil, false
	}
	return platforms, true
}

// SetPlatforms stores the platform catalog with a long TTL.
func (c *Cache) SetPlatforms(ctx context.Context, platforms []domain.Platform) {
	c.setJSON(ctx, keyPlatforms, platforms, TTLPlatforms)
}

// InvalidatePlatforms drops the cached catalog after an admin edit.
func (c *Cache) InvalidatePlatforms(ctx context.Context) {
	_ = c.store.Delete(ctx, keyPlatforms)
}

func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}

// rateKey builds the rate-limit key for a client identifier.
func rateKey(id string) string {
	return fmt.Sprintf("%s%s", nsRate, id)
}
