package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	activityCacheTotal   *prometheus.CounterVec
	attendanceChanges    *prometheus.CounterVec
	photoUploadLatency   prometheus.Histogram
	photoUploadsRejected *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		activityCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activities_list_requests_total",
			Help: "Activity list lookups partitioned by cache outcome.",
		}, []string{"result"})

		attendanceChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activities_attendance_changes_total",
			Help: "Attendance changes partitioned by action.",
		}, []string{"action"})

		photoUploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "photo_upload_latency_seconds",
			Help:    "Latency of profile photo uploads.",
			Buckets: prometheus.DefBuckets,
		})

		photoUploadsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_uploads_rejected_total",
			Help: "Rejected profile photo uploads partitioned by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			activityCacheTotal,
			attendanceChanges,
			photoUploadLatency,
			photoUploadsRejected,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ActivityCacheRequests exposes the activity list cache counter.
func ActivityCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return activityCacheTotal
}

// AttendanceChanges exposes the attendance change counter.
func AttendanceChanges() *prometheus.CounterVec {
	RegisterMetrics()
	return attendanceChanges
}

// PhotoUploadLatency exposes the photo upload latency histogram.
func PhotoUploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return photoUploadLatency
}

// PhotoRejected exposes the rejected photo counter.
func PhotoRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return photoUploadsRejected
}
