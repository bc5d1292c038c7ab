package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

const strategyCount = 3

var (
	extractionsTotal  atomic.Int64
	extractionsCached atomic.Int64
	extractionsFailed atomic.Int64
	fusedFieldsTotal  atomic.Int64

	strategyProposals [strategyCount]atomic.Int64
	strategyFailures  [strategyCount]atomic.Int64
	strategyWins      [strategyCount]atomic.Int64
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Extractions int64
	Cached      int64
	Failed      int64
	FusedFields int64
	Proposals   map[models.Strategy]int64
	Failures    map[models.Strategy]int64
	Wins        map[models.Strategy]int64
}

func ObserveExtraction(cached bool, fusedFields int) {
	extractionsTotal.Add(1)
	if cached {
		extractionsCached.Add(1)
	}
	fusedFieldsTotal.Add(int64(fusedFields))
}

func ObserveExtractionFailure() {
	extractionsFailed.Add(1)
}

func ObserveStrategy(s models.Strategy, proposed int) {
	if idx, ok := slot(s); ok {
		strategyProposals[idx].Add(int64(proposed))
	}
}

func ObserveStrategyFailure(s models.Strategy) {
	if idx, ok := slot(s); ok {
		strategyFailures[idx].Add(1)
	}
}

func ObserveWinner(s models.Strategy) {
	if idx, ok := slot(s); ok {
		strategyWins[idx].Add(1)
	}
}

func Read() Snapshot {
	snap := Snapshot{
		Extractions: extractionsTotal.Load(),
		Cached:      extractionsCached.Load(),
		Failed:      extractionsFailed.Load(),
		FusedFields: fusedFieldsTotal.Load(),
		Proposals:   make(map[models.Strategy]int64, strategyCount),
		Failures:    make(map[models.Strategy]int64, strategyCount),
		Wins:        make(map[models.Strategy]int64, strategyCount),
	}
	for idx, s := range models.StrategyPriority {
		snap.Proposals[s] = strategyProposals[idx].Load()
		snap.Failures[s] = strategyFailures[idx].Load()
		snap.Wins[s] = strategyWins[idx].Load()
	}
	return snap
}

func slot(s models.Strategy) (int, bool) {
	idx := s.Priority()
	return idx, idx < strategyCount
}

func WritePrometheus(w http.ResponseWriter) {
	snap := Read()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP cardio_extract_extractions_total Number of narratives processed.\n")
	fmt.Fprintf(w, "# TYPE cardio_extract_extractions_total counter\n")
	fmt.Fprintf(w, "cardio_extract_extractions_total %d\n", snap.Extractions)

	fmt.Fprintf(w, "# HELP cardio_extract_extractions_cached_total Number of narratives answered from the result cache.\n")
	fmt.Fprintf(w, "# TYPE cardio_extract_extractions_cached_total counter\n")
	fmt.Fprintf(w, "cardio_extract_extractions_cached_total %d\n", snap.Cached)

	fmt.Fprintf(w, "# HELP cardio_extract_extractions_failed_total Number of extraction requests rejected or failed.\n")
	fmt.Fprintf(w, "# TYPE cardio_extract_extractions_failed_total counter\n")
	fmt.Fprintf(w, "cardio_extract_extractions_failed_total %d\n", snap.Failed)

	fmt.Fprintf(w, "# HELP cardio_extract_fused_fields_total Number of fields emitted by fusion.\n")
	fmt.Fprintf(w, "# TYPE cardio_extract_fused_fields_total counter\n")
	fmt.Fprintf(w, "cardio_extract_fused_fields_total %d\n", snap.FusedFields)

	fmt.Fprintf(w, "# HELP cardio_extract_strategy_proposals_total Number of field candidates proposed per strategy.\n")
	fmt.Fprintf(w, "# TYPE cardio_extract_strategy_proposals_total counter\n")
	for _, s := range models.StrategyPriority {
		fmt.Fprintf(w, "cardio_extract_strategy_proposals_total{strategy=%q} %d\n", s, snap.Proposals[s])
	}

	fmt.Fprintf(w, "# HELP cardio_extract_strategy_failures_total Number of strategy runs degraded to an empty result.\n")
	fmt.Fprintf(w, "# TYPE cardio_extract_strategy_failures_total counter\n")
	for _, s := range models.StrategyPriority {
		fmt.Fprintf(w, "cardio_extract_strategy_failures_total{strategy=%q} %d\n", s, snap.Failures[s])
	}

	fmt.Fprintf(w, "# HELP cardio_extract_strategy_wins_total Number of fused fields won per strategy.\n")
	fmt.Fprintf(w, "# TYPE cardio_extract_strategy_wins_total counter\n")
	for _, s := range models.StrategyPriority {
		fmt.Fprintf(w, "cardio_extract_strategy_wins_total{strategy=%q} %d\n", s, snap.Wins[s])
	}
}
