package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artgen_provider_requests_total",
			Help: "Provider generation calls by model and result",
		},
		[]string{"model", "result"},
	)

	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artgen_provider_request_duration_seconds",
			Help:    "Provider generation call latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	imagesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artgen_images_stored_total",
			Help: "Images written to a store by kind (generated, uploaded)",
		},
		[]string{"kind"},
	)

	imageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artgen_image_failures_total",
			Help: "Per-image fetch or persist failures by kind",
		},
		[]string{"kind"},
	)

	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artgen_sweep_runs_total",
		Help: "Retention sweeper runs",
	})

	sweepRowsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artgen_sweep_rows_deleted_total",
		Help: "Metadata rows removed by the retention sweeper",
	})

	sweepFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artgen_sweep_files_deleted_total",
		Help: "Image files removed by the retention sweeper",
	})

	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artgen_sweep_errors_total",
		Help: "File deletions that failed during a sweep",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artgen_sweep_duration_seconds",
		Help:    "Retention sweep duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)
