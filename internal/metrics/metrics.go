// Package metrics exposes Prometheus metrics for analyses, findings, deep
// scans, rule reloads and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikey/phishguard/internal/core"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_analyses_total",
		Help: "Total analyses by mode, trust level and outcome.",
	}, []string{"mode", "trust_level", "flagged"})

	analysisScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishguard_analysis_score",
		Help:    "Distribution of risk scores.",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}, []string{"mode"})

	findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_findings_total",
		Help: "Total detector findings by rule and mode.",
	}, []string{"rule", "mode"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_cache_lookups_total",
		Help: "Result cache lookups by result.",
	}, []string{"result"})

	deepScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_deep_scans_total",
		Help: "Deep scans by provider and status.",
	}, []string{"provider", "status"})

	rulesReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_rules_reloads_total",
		Help: "Rule document reloads by result.",
	}, []string{"result"})

	rulesDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phishguard_rules_degraded",
		Help: "1 when the empty rule set is in use because the document failed to load.",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_http_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishguard_http_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Recorder implements core.Recorder on the package metrics.
type Recorder struct{}

// NewRecorder returns a recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveAnalysis counts one verdict.
func (Recorder) ObserveAnalysis(v *core.Verdict) {
	if v == nil {
		return
	}
	analysesTotal.WithLabelValues(string(v.Mode), string(v.Trust.Level), strconv.FormatBool(v.Flagged)).Inc()
	if !v.Cached {
		analysisScore.WithLabelValues(string(v.Mode)).Observe(float64(v.Result.Score))
	}
}

// ObserveDeepScan counts one deep-scan attempt.
func (Recorder) ObserveDeepScan(provider string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	deepScansTotal.WithLabelValues(provider, status).Inc()
}

// ObserveCache counts one cache lookup.
func (Recorder) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveFinding counts one detector finding. It matches
// detection.FindingObserver.
func ObserveFinding(mode core.Mode, f core.Finding) {
	findingsTotal.WithLabelValues(f.Rule, string(mode)).Inc()
}

// RecordRulesReload records a reload attempt and the resulting degradation state.
func RecordRulesReload(success, degraded bool) {
	if success {
		rulesReloadsTotal.WithLabelValues("success").Inc()
	} else {
		rulesReloadsTotal.WithLabelValues("failure").Inc()
	}
	if degraded {
		rulesDegraded.Set(1)
	} else {
		rulesDegraded.Set(0)
	}
}

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinHandler serves the default registry from a Gin route.
func GinHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
