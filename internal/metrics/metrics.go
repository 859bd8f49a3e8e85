package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	modelReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "model_requests_total",
			Help:      "Total model invocations by model and result",
		},
		[]string{"model", "result"},
	)

	modelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Name:      "model_request_duration_seconds",
			Help:      "Duration of model invocations by model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "analyses_total",
			Help:      "Completed analyses by result (success, error)",
		},
		[]string{"result"},
	)

	analysisLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis duration including staging",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	stagingPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "staging_polls_total",
			Help:      "Status polls issued while waiting for staged files",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(modelReqs, modelLatency, analyses, analysisLatency, stagingPolls)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveModel(model, result string, dur time.Duration) {
	modelReqs.WithLabelValues(model, result).Inc()
	modelLatency.WithLabelValues(model).Observe(dur.Seconds())
}

func ObserveAnalysis(result string, dur time.Duration) {
	analyses.WithLabelValues(result).Inc()
	analysisLatency.Observe(dur.Seconds())
}

func IncStagingPoll() { stagingPolls.Inc() }
