package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds the portal's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CertificatesIssued  *prometheus.CounterVec
	ComposeDuration     prometheus.Histogram
	Verifications       *prometheus.CounterVec
	AttendeesImported   prometheus.Counter
	AttendeeRowsSkipped prometheus.Counter
	TemplateResolutions *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CertificatesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certportal_certificates_issued_total",
			Help: "Certificate issue attempts by outcome",
		}, []string{"outcome"}),
		ComposeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "certportal_compose_duration_seconds",
			Help:    "Duration of PDF composition",
			Buckets: durationBuckets,
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certportal_verifications_total",
			Help: "Verification lookups by result",
		}, []string{"result"}),
		AttendeesImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "certportal_attendees_imported_total",
			Help: "Roster rows upserted",
		}),
		AttendeeRowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "certportal_attendee_rows_skipped_total",
			Help: "Roster rows skipped during import",
		}),
		TemplateResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certportal_template_resolutions_total",
			Help: "Template resolutions by source",
		}, []string{"source"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certportal_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status",
			Buckets: durationBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveIssue(outcome string) {
	if m == nil {
		return
	}
	m.CertificatesIssued.WithLabelValues(outcome).Inc()
}

// ObserveCompose records the duration of a composition started at start.
func (m *Metrics) ObserveCompose(start time.Time) {
	if m == nil {
		return
	}
	m.ComposeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveVerification(verified bool) {
	if m == nil {
		return
	}
	result := "not_verified"
	if verified {
		result = "verified"
	}
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveImport(processed, skipped int) {
	if m == nil {
		return
	}
	m.AttendeesImported.Add(float64(processed))
	m.AttendeeRowsSkipped.Add(float64(skipped))
}

func (m *Metrics) ObserveTemplateSource(source string) {
	if m == nil {
		return
	}
	m.TemplateResolutions.WithLabelValues(source).Inc()
}

// Middleware records request durations keyed by the matched route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
