package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"github.com/synaptica-ai/cardio-extract/pkg/observability/metrics"
	"golang.org/x/sync/errgroup"
)

// Engine runs the generative, pattern and entity strategies over one text
// and fuses their results. It keeps no per-call state.
type Engine struct {
	strategies [3]Strategy
	parallel   bool
}

type Option func(*Engine)

// WithParallel runs the strategies concurrently. The collaborators behind
// them must then be safe for concurrent use.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.parallel = parallel
	}
}

// Report is the outcome of one extraction.
type Report struct {
	Fused   models.FusedResult
	Results map[models.Strategy]models.ExtractionResult
	// Degraded lists strategies whose collaborator failed on this call,
	// in priority order. Unconfigured strategies are not listed.
	Degraded []models.Strategy
	Elapsed  time.Duration
}

func NewEngine(generative, pattern, entity Strategy, opts ...Option) (*Engine, error) {
	slots := [3]Strategy{generative, pattern, entity}
	for idx, strategy := range slots {
		want := models.StrategyPriority[idx]
		if strategy == nil {
			return nil, fmt.Errorf("%s strategy is required", want)
		}
		if strategy.Name() != want {
			return nil, fmt.Errorf("strategy %s registered in the %s slot", strategy.Name(), want)
		}
	}
	e := &Engine{strategies: slots}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract never fails; a strategy that cannot run contributes nothing.
func (e *Engine) Extract(ctx context.Context, text string) Report {
	start := time.Now()
	ctx, failed := withDegradations(ctx)
	var results [3]models.ExtractionResult

	if e.parallel {
		var g errgroup.Group
		for idx, strategy := range e.strategies {
			idx, strategy := idx, strategy
			g.Go(func() error {
				results[idx] = strategy.Extract(ctx, text)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for idx, strategy := range e.strategies {
			results[idx] = strategy.Extract(ctx, text)
		}
	}

	fused := Fuse(results[0], results[1], results[2])
	for _, value := range fused {
		metrics.ObserveWinner(value.Source)
	}

	report := Report{
		Fused:    fused,
		Results:  make(map[models.Strategy]models.ExtractionResult, len(results)),
		Degraded: failed.list(),
		Elapsed:  time.Since(start),
	}
	for idx, strategy := range e.strategies {
		report.Results[strategy.Name()] = results[idx]
	}

	logger.WithFields(map[string]interface{}{
		"fields":     len(fused),
		"generative": len(results[0]),
		"pattern":    len(results[1]),
		"entity":     len(results[2]),
		"degraded":   len(report.Degraded),
		"latency_ms": report.Elapsed.Milliseconds(),
	}).Debug("extraction fused")
	return report
}

// Counts reports how many fields each strategy proposed.
func (r Report) Counts() map[models.Strategy]int {
	out := make(map[models.Strategy]int, len(r.Results))
	for strategy, result := range r.Results {
		out[strategy] = len(result)
	}
	return out
}

// Complete reports whether every configured strategy ran without failing.
func (r Report) Complete() bool {
	return len(r.Degraded) == 0
}
