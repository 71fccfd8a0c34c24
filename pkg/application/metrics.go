package application

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

var (
	// variantRequests counts cache lookups.
	// Labels: result (hit, miss, shared)
	variantRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "critique",
		Subsystem: "variant_cache",
		Name:      "requests_total",
		Help:      "Variant cache requests by outcome",
	}, []string{"result"})

	// generationLatency measures external generation calls.
	// Labels: stage (critique, variant, themes), status (success, error)
	generationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "critique",
		Subsystem: "generation",
		Name:      "latency_seconds",
		Help:      "External generation latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"stage", "status"})

	// staleResults counts results discarded because the epoch or selection moved on.
	staleResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "critique",
		Subsystem: "generation",
		Name:      "stale_results_total",
		Help:      "Generation results discarded as stale",
	}, []string{"stage"})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "critique",
		Subsystem: "analysis_log",
		Name:      "persist_failures_total",
		Help:      "Best-effort analysis log writes that failed",
	})

	epochAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "critique",
		Subsystem: "variant_cache",
		Name:      "epoch_advances_total",
		Help:      "Times a variant cache discarded its entries",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "critique",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Sessions currently held by the registry",
	})

	// synthesizedPoints tracks the size of cross-run synthesis output.
	// Labels: phase (raw, merged, final)
	synthesizedPoints = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "critique",
		Subsystem: "synthesis",
		Name:      "points",
		Help:      "Point counts at each synthesis phase",
		Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"phase"})
)

func observeGeneration(stage critique.GenerationStage, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	generationLatency.WithLabelValues(string(stage), status).Observe(time.Since(start).Seconds())
}

func recordStale(stage critique.GenerationStage) {
	staleResults.WithLabelValues(string(stage)).Inc()
}
