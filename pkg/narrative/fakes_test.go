package narrative

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"github.com/synaptica-ai/cardio-extract/pkg/extraction"
)

// newEngine wires the real pattern strategy with the model-backed
// strategies left unconfigured.
func newEngine(t *testing.T) *extraction.Engine {
	t.Helper()
	patterns, err := extraction.NewPatternExtractor(extraction.DefaultPatterns())
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	generative, err := extraction.NewGenerativeExtractor(nil)
	if err != nil {
		t.Fatalf("generative: %v", err)
	}
	engine, err := extraction.NewEngine(generative, patterns, extraction.NewEntityExtractor(nil, nil))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}

type countingExtractor struct {
	inner Extractor
	mu    sync.Mutex
	calls int
}

func (c *countingExtractor) Extract(ctx context.Context, text string) extraction.Report {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Extract(ctx, text)
}

type memStore struct {
	mu      sync.Mutex
	records map[string]*Record
	err     error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*Record)}
}

func (m *memStore) Create(ctx context.Context, rec *Record) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]CachedResult
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]CachedResult)}
}

func (m *memCache) Get(ctx context.Context, text string) (*CachedResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[CacheKey(text)]
	if !ok {
		return nil, false
	}
	return &entry, true
}

func (m *memCache) Set(ctx context.Context, text string, result CachedResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[CacheKey(text)] = result
}

type publishedEvent struct {
	eventType string
	key       string
	data      map[string]interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, eventType, source, key string, data map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{eventType: eventType, key: key, data: data})
	return nil
}

var errBackend = errors.New("backend down")

const restingBPNote = "La presión arterial registrada en reposo es de 145 mmHg."

func requireRestingBP(t *testing.T, fields models.FusedResult) {
	t.Helper()
	got, ok := fields[models.FieldRestingBP]
	if !ok {
		t.Fatalf("expected RestingBP in %v", fields)
	}
	if got.Value != "145" || got.UnitString() != "mmHg" || got.Source != models.StrategyPattern {
		t.Fatalf("unexpected RestingBP %+v", got)
	}
}

// flakyCompleter fails its first call and answers with response afterwards.
type flakyCompleter struct {
	mu       sync.Mutex
	calls    int
	response string
}

func (f *flakyCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		return "", errBackend
	}
	return f.response, nil
}

func newEngineWithCompleter(t *testing.T, completer extraction.Completer) *extraction.Engine {
	t.Helper()
	patterns, err := extraction.NewPatternExtractor(extraction.DefaultPatterns())
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	generative, err := extraction.NewGenerativeExtractor(completer)
	if err != nil {
		t.Fatalf("generative: %v", err)
	}
	engine, err := extraction.NewEngine(generative, patterns, extraction.NewEntityExtractor(nil, nil))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}
