// Package observ exports print job metrics to prometheus.
package observ

import (
	"context"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	printJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "print_jobs_total",
			Help: "Finished print jobs by type and status",
		},
		[]string{"type", "status"},
	)

	printBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "print_job_bytes",
			Help:    "Size of ESC/POS payloads sent to the printer",
			Buckets: prometheus.ExponentialBuckets(256, 2, 8),
		},
		[]string{"type"},
	)
)

// JobMetrics records every finished job it is handed.
type JobMetrics struct{}

func NewJobMetrics() *JobMetrics { return &JobMetrics{} }

func (*JobMetrics) PublishJob(_ context.Context, job entity.PrintJob) error {
	printJobs.WithLabelValues(string(job.Type), string(job.Status)).Inc()
	printBytes.WithLabelValues(string(job.Type)).Observe(float64(job.Bytes))
	return nil
}

var _ usecase.JobPublisher = (*JobMetrics)(nil)
