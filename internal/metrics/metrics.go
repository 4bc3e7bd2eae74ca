package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rotorlab/tune-engine/internal/models"
)

const (
	// OutcomeSuccess labels completed analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses that failed before producing a result.
	OutcomeError = "error"
	// OutcomeCached labels analyses served from the result cache.
	OutcomeCached = "cached"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tune_engine",
			Name:      "analyses_total",
			Help:      "Total number of log analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tune_engine",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)

	issuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tune_engine",
			Name:      "issues_total",
			Help:      "Detected issues across all analyses, partitioned by type.",
		},
		[]string{"type"},
	)

	recommendationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tune_engine",
			Name:      "recommendations_total",
			Help:      "Recommendations emitted across all analyses.",
		},
	)
)

// Register attaches the engine's collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		issuesTotal,
		recommendationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomeCached:
	default:
		outcome = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveResult records the findings of a completed analysis.
func ObserveResult(result models.AnalysisResult) {
	for _, issue := range result.Issues {
		issuesTotal.WithLabelValues(string(issue.Type)).Inc()
	}
	recommendationsTotal.Add(float64(len(result.Recommendations)))
}
