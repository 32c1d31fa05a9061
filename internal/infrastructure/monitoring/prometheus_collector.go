package monitoring

import (
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	sessionsOpened   prometheus.Counter
	sessionsGranted  prometheus.Counter
	sessionsDenied   *prometheus.CounterVec
	sessionsExpired  prometheus.Counter
	uploadsTotal     *prometheus.CounterVec
	loginsTotal      *prometheus.CounterVec
	registrations    *prometheus.CounterVec
	downloadsBlocked prometheus.Counter

	// Gauges
	activeSessions          prometheus.Gauge
	notificationSubscribers prometheus.Gauge

	// Histograms
	verificationDuration prometheus.Histogram
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers every metric with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		sessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "secureshield_sessions_opened_total",
			Help: "Total number of access sessions opened",
		}),

		sessionsGranted: factory.NewCounter(prometheus.CounterOpts{
			Name: "secureshield_sessions_granted_total",
			Help: "Total number of access sessions granted",
		}),

		sessionsDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "secureshield_sessions_denied_total",
			Help: "Total number of access sessions denied",
		}, []string{"reason"}),

		sessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "secureshield_sessions_expired_total",
			Help: "Total number of granted sessions whose countdown ran out",
		}),

		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "secureshield_uploads_total",
			Help: "Total number of catalog items uploaded",
		}, []string{"kind"}),

		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "secureshield_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),

		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "secureshield_registrations_total",
			Help: "Accounts registered by role",
		}, []string{"role"}),

		downloadsBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "secureshield_download_attempts_blocked_total",
			Help: "Total number of blocked download attempts",
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "secureshield_active_sessions",
			Help: "Number of granted sessions still counting down",
		}),

		notificationSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "secureshield_notification_subscribers",
			Help: "Number of open notification feeds",
		}),

		verificationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "secureshield_verification_duration_seconds",
			Help:    "Time from opening a session to its grant",
			Buckets: []float64{0.5, 1, 1.2, 1.5, 2, 5},
		}),
	}
}

func (p *PrometheusCollector) SessionOpened() {
	p.sessionsOpened.Inc()
}

func (p *PrometheusCollector) SessionGranted(verification time.Duration) {
	p.sessionsGranted.Inc()
	p.verificationDuration.Observe(verification.Seconds())
}

func (p *PrometheusCollector) SessionDenied(reason domain.DenyReason) {
	p.sessionsDenied.WithLabelValues(string(reason)).Inc()
}

func (p *PrometheusCollector) SessionExpired() {
	p.sessionsExpired.Inc()
}

func (p *PrometheusCollector) SetActiveSessions(n int) {
	p.activeSessions.Set(float64(n))
}

func (p *PrometheusCollector) ContentUploaded(kind domain.MediaKind) {
	p.uploadsTotal.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) LoginAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.loginsTotal.WithLabelValues(result).Inc()
}

func (p *PrometheusCollector) UserRegistered(role domain.Role) {
	p.registrations.WithLabelValues(string(role)).Inc()
}

func (p *PrometheusCollector) DownloadBlocked() {
	p.downloadsBlocked.Inc()
}

func (p *PrometheusCollector) SetNotificationSubscribers(n int) {
	p.notificationSubscribers.Set(float64(n))
}
