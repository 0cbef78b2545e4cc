package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoshare_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "photoshare_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// BlobOperations counts blob store calls by backend, operation and result.
	BlobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoshare_blob_operations_total",
		Help: "Total blob store operations",
	}, []string{"backend", "operation", "result"})

	// BlobLatency records blob store call latency.
	BlobLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "photoshare_blob_operation_latency_seconds",
		Help:    "Blob store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// AuthEvents counts registrations, logins and logouts by result.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoshare_auth_events_total",
		Help: "Authentication events by type and result",
	}, []string{"event", "result"})

	// ContentEvents counts photo, comment and like mutations.
	ContentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoshare_content_events_total",
		Help: "Content mutations by kind and action",
	}, []string{"kind", "action"})

	// PartialFailures counts operations whose record mutation succeeded but a dependent step failed.
	PartialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoshare_partial_failures_total",
		Help: "Operations that completed with a partial failure",
	}, []string{"operation"})

	// BackgroundJobRemovals counts rows removed by background jobs.
	BackgroundJobRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoshare_background_job_removed_total",
		Help: "Records removed by background jobs",
	}, []string{"job", "kind"})
)

// ObserveBlob records one blob store call.
func ObserveBlob(backend, operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	BlobOperations.WithLabelValues(backend, operation, result).Inc()
	BlobLatency.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

const queryStartKey = "photoshare:query_start"

// RegisterGormMetrics installs callbacks recording query latency per operation and table.
func RegisterGormMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before("metrics:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.after("metrics:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
