package api

import (
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

var (
	includeOrgLabel = os.Getenv("MCPGW_METRICS_LABELS_ORG") == "true"

	reqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mcpgw",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	reqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mcpgw", Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"method", "path", "status"},
	)
	decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mcpgw", Name: "dispatch_decisions_total", Help: "Dispatch decisions by outcome (optionally labeled by org)"},
		[]string{"decision", "org"},
	)
	// External ops (authorization server metadata fetch, membership query)
	externalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "mcpgw", Name: "external_op_duration_seconds", Help: "Duration of external operations"},
		[]string{"op", "outcome"},
	)
	externalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mcpgw", Name: "external_op_total", Help: "Total external operations"},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(reqDuration, reqTotal, decisionTotal, externalDuration, externalTotal)
}

// MetricsMiddleware records basic HTTP metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start).Seconds()
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		observer := reqDuration.WithLabelValues(c.Request.Method, path, toStr(status))
		// attach exemplar with trace_id if present
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			if eo, ok := observer.(prometheus.ExemplarObserver); ok {
				eo.ObserveWithExemplar(dur, prometheus.Labels{"trace_id": sc.TraceID().String()})
			} else {
				observer.Observe(dur)
			}
		} else {
			observer.Observe(dur)
		}
		reqTotal.With(prometheus.Labels{"method": c.Request.Method, "path": path, "status": toStr(status)}).Inc()
	}
}

func toStr(i int) string { return strconv.Itoa(i) }

// RecordDecision increments a dispatch decision counter
func RecordDecision(decision, org string) {
	if !includeOrgLabel {
		org = ""
	}
	decisionTotal.With(prometheus.Labels{"decision": decision, "org": org}).Inc()
}

// RecordExternalOp records an external operation metric with duration and outcome
func RecordExternalOp(op string, dur time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	externalDuration.WithLabelValues(op, outcome).Observe(dur.Seconds())
	externalTotal.WithLabelValues(op, outcome).Inc()
}
