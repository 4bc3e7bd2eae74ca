package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotorlab/tune-engine/internal/models"
)

// ResultCache stores finished analysis results keyed by a content hash of
// the input plus the knobs that shape the output.
type ResultCache struct {
	provider Provider
	ttl      time.Duration
}

func NewResultCache(provider Provider, ttl time.Duration) *ResultCache {
	if provider == nil {
		provider = NoopProvider{}
	}
	return &ResultCache{provider: provider, ttl: ttl}
}

// Key hashes the frames, metadata, profile name, and analysis level. Two
// identical inputs always map to the same key; the analysis is deterministic
// so a hit is as good as a run.
func (c *ResultCache) Key(frames []models.Frame, meta models.LogMetadata, profileName, level string) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(meta)
	_ = enc.Encode(frames)
	fmt.Fprintf(h, "%s|%s", profileName, level)
	return "tune:result:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key, or ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, key string) (models.AnalysisResult, error) {
	data, err := c.provider.Get(ctx, key)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry behaves like a miss; the caller recomputes.
		_ = c.provider.Del(ctx, key)
		return models.AnalysisResult{}, ErrCacheMiss
	}
	return result, nil
}

// Put stores a finished result under key.
func (c *ResultCache) Put(ctx context.Context, key string, result models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.provider.Set(ctx, key, data, c.ttl)
}
