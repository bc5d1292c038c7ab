package narrative

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"github.com/synaptica-ai/cardio-extract/pkg/extraction"
	"github.com/synaptica-ai/cardio-extract/pkg/vocabulary"
)

func TestCacheKeyIsStableHash(t *testing.T) {
	a := CacheKey(restingBPNote)
	if a != CacheKey(restingBPNote) {
		t.Fatal("cache key must be deterministic")
	}
	if !strings.HasPrefix(a, "extraction:") || len(a) != len("extraction:")+64 {
		t.Fatalf("unexpected key %q", a)
	}
	if a == CacheKey(restingBPNote+" ") {
		t.Fatal("different text must not share a key")
	}
}

func TestRedisCacheDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cache := NewRedisCache(client, time.Minute)
	cache.Set(context.Background(), restingBPNote, CachedResult{Fields: models.FusedResult{}})
	if _, ok := cache.Get(context.Background(), restingBPNote); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
}

func TestBuildCatalogIncludesPatterns(t *testing.T) {
	patterns, err := extraction.NewPatternExtractor(extraction.DefaultPatterns())
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	catalog := BuildCatalog(vocabulary.Default(), patterns.Rules())

	byName := make(map[models.CanonicalField]FieldInfo)
	for _, info := range catalog {
		byName[info.Name] = info
	}
	if byName[models.FieldRestingBP].Pattern == "" {
		t.Fatal("expected RestingBP pattern in catalog")
	}
	if byName[models.FieldSex].Pattern != "" {
		t.Fatal("Sex has no pattern rule")
	}
}
