package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Submit calls by trigger source and outcome (transitioned, noop, failed)",
		},
		[]string{"source", "outcome"},
	)

	AnswerWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answer_writes_total",
			Help: "Answer merge-writes by outcome (ok, rejected, degraded)",
		},
		[]string{"outcome"},
	)

	Retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_persistence_retries_total",
			Help: "Retried persistence calls by operation",
		},
		[]string{"op"},
	)

	Grading = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_grading_events_total",
			Help: "Manual grading events (recorded, graded, force_finalized)",
		},
		[]string{"event"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, Submissions, AnswerWrites, Retries, Grading)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
