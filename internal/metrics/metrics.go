package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymvault_operations_total",
		Help: "Lifecycle operations by type and status",
	}, []string{"operation", "status"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gymvault_operation_duration_seconds",
		Help:    "Time spent in lifecycle operations",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"operation"})

	BackupSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gymvault_backup_size_bytes",
		Help: "Size of the most recent backup in bytes",
	})

	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymvault_drive_uploads_total",
		Help: "Drive upload attempts by status",
	}, []string{"status"})

	ScheduledRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymvault_scheduled_runs_total",
		Help: "Scheduled backup executions by status",
	}, []string{"status"})
)

// Handler exposes the default registry for the API router.
func Handler() http.Handler {
	return promhttp.Handler()
}
