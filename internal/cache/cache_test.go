package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotorlab/tune-engine/internal/models"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := p.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := p.Get(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("Get = %q/%v, want v", data, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestMemoryProviderTTL(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()
	if err := p.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry miss, got %v", err)
	}
}

func TestResultCacheKeyStability(t *testing.T) {
	frames := []models.Frame{{TimeUs: 0, Throttle: 1400}, {TimeUs: 1000, Throttle: 1410}}
	meta := models.LogMetadata{SampleRateHz: 1000}
	c := NewResultCache(NewMemoryProvider(), time.Minute)

	k1 := c.Key(frames, meta, "default", "standard")
	k2 := c.Key(frames, meta, "default", "standard")
	if k1 != k2 {
		t.Fatalf("identical input hashed to different keys")
	}
	if c.Key(frames, meta, "race", "standard") == k1 {
		t.Errorf("profile not part of the key")
	}
	if c.Key(frames, meta, "default", "deep") == k1 {
		t.Errorf("analysis level not part of the key")
	}
	altered := append([]models.Frame(nil), frames...)
	altered[1].Throttle = 1420
	if c.Key(altered, meta, "default", "standard") == k1 {
		t.Errorf("frame content not part of the key")
	}
}

func TestResultCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache(NewMemoryProvider(), time.Minute)

	result := models.AnalysisResult{
		Summary: models.Summary{Health: models.HealthGood, TotalIssues: 2},
		Issues: []models.DetectedIssue{{
			ID: "i1", Type: models.IssueOscillation, Axis: models.AxisRoll,
			Severity: models.SeverityMedium, Confidence: 0.7,
		}},
	}
	key := "tune:result:test"
	if err := c.Put(ctx, key, result); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Summary.Health != models.HealthGood || len(got.Issues) != 1 {
		t.Fatalf("round trip mangled the result: %+v", got)
	}
}

func TestResultCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()
	c := NewResultCache(p, time.Minute)

	_ = p.Set(ctx, "bad", []byte("not json"), 0)
	if _, err := c.Get(ctx, "bad"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("corrupt entry should read as a miss, got %v", err)
	}
}
