// Package monitoring exposes the service's Prometheus collectors.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ridesight_predictions_total",
		Help: "Predictions served, by risk tier.",
	}, []string{"tier"})
	predictionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridesight_predictions_failed_total",
		Help: "Prediction requests that produced an error.",
	})
	predictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ridesight_prediction_duration_seconds",
		Help:    "Duration of the encode, align, scale and classify pipeline.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ridesight_queries_total",
		Help: "Canned query executions, by outcome (ok, cached, error).",
	}, []string{"outcome"})
	ridesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ridesight_dataset_rides",
		Help: "Rides in the most recently loaded dataset.",
	})
)

// ObservePrediction records one successful prediction.
func ObservePrediction(tier string, took time.Duration) {
	predictionsTotal.WithLabelValues(tier).Inc()
	predictionDuration.Observe(took.Seconds())
}

// PredictionFailed counts a failed prediction request.
func PredictionFailed() {
	predictionsFailed.Inc()
}

// ObserveQuery records a query outcome: "ok", "cached" or "error".
func ObserveQuery(outcome string) {
	queriesTotal.WithLabelValues(outcome).Inc()
}

// SetRidesLoaded publishes the dataset size.
func SetRidesLoaded(n int) {
	ridesLoaded.Set(float64(n))
}
