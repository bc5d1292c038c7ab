package extraction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"github.com/synaptica-ai/cardio-extract/pkg/observability/metrics"
)

// Strategy proposes candidate values for canonical fields. Implementations
// never fail: any collaborator error degrades to an empty result.
type Strategy interface {
	Name() models.Strategy
	Extract(ctx context.Context, text string) models.ExtractionResult
}

type degradedKey struct{}

// degradations collects the strategies that failed during one engine run.
type degradations struct {
	mu         sync.Mutex
	strategies []models.Strategy
}

func withDegradations(ctx context.Context) (context.Context, *degradations) {
	d := &degradations{}
	return context.WithValue(ctx, degradedKey{}, d), d
}

func markDegraded(ctx context.Context, name models.Strategy) {
	d, ok := ctx.Value(degradedKey{}).(*degradations)
	if !ok {
		return
	}
	d.mu.Lock()
	d.strategies = append(d.strategies, name)
	d.mu.Unlock()
}

// list returns the failed strategies in priority order.
func (d *degradations) list() []models.Strategy {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]models.Strategy(nil), d.strategies...)
	sort.Slice(out, func(i, j int) bool { return out[i].Priority() < out[j].Priority() })
	return out
}

// contain runs fn and converts errors and panics into an empty result.
// Failures other than ErrStrategyUnavailable are recorded on ctx.
func contain(ctx context.Context, name models.Strategy, text string, fn func() (models.ExtractionResult, error)) (result models.ExtractionResult) {
	if strings.TrimSpace(text) == "" {
		return models.ExtractionResult{}
	}

	start := time.Now()
	log := logger.WithStrategy(string(name))
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("extraction strategy panicked")
			metrics.ObserveStrategyFailure(name)
			markDegraded(ctx, name)
			result = models.ExtractionResult{}
		}
	}()

	out, err := fn()
	if errors.Is(err, ErrStrategyUnavailable) {
		log.Debug("extraction strategy not configured")
		return models.ExtractionResult{}
	}
	if err != nil {
		log.WithError(err).WithField("latency_ms", time.Since(start).Milliseconds()).
			Warn("extraction strategy degraded to empty result")
		metrics.ObserveStrategyFailure(name)
		markDegraded(ctx, name)
		return models.ExtractionResult{}
	}
	if out == nil {
		out = models.ExtractionResult{}
	}
	metrics.ObserveStrategy(name, len(out))
	log.WithFields(map[string]interface{}{
		"fields":     len(out),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("extraction strategy completed")
	return out
}
