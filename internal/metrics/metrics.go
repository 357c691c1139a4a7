package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total finished predictions",
		},
		[]string{"model"},
	)
	PredictionsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "predictions_failed_total",
			Help: "Total failed prediction jobs",
		},
	)
	PredictionsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_dispatched_total",
			Help: "Total prediction jobs submitted to the queue",
		},
		[]string{"model"},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prediction_queue_depth",
			Help: "Current pending prediction jobs",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(PredictionsTotal)
	prometheus.MustRegister(PredictionsFailed)
	prometheus.MustRegister(PredictionsDispatched)
	prometheus.MustRegister(QueueDepth)
}
