// Package metrics exposes Prometheus counters for the desk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds the desk's collectors. A nil *Metrics records nothing.
type Metrics struct {
	WizardStarts     *prometheus.CounterVec
	WizardRejections *prometheus.CounterVec
	TicketsCreated   prometheus.Counter
	TicketsClaimed   prometheus.Counter
	TicketsClosed    *prometheus.CounterVec
	VolumeCompleted  prometheus.Counter
	TranscriptJobs   *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WizardStarts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desk_wizard_starts_total",
				Help: "Wizard start attempts by result",
			},
			[]string{"result"},
		),
		WizardRejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desk_wizard_rejections_total",
				Help: "Rejected wizard steps by error kind",
			},
			[]string{"kind"},
		),
		TicketsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "desk_tickets_created_total",
			Help: "Tickets created",
		}),
		TicketsClaimed: f.NewCounter(prometheus.CounterOpts{
			Name: "desk_tickets_claimed_total",
			Help: "Tickets claimed by an exchanger",
		}),
		TicketsClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desk_tickets_closed_total",
				Help: "Tickets closed by final status",
			},
			[]string{"status"},
		),
		VolumeCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "desk_volume_completed_total",
			Help: "Sum of completed ticket amounts",
		}),
		TranscriptJobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desk_transcript_jobs_total",
				Help: "Transcript jobs by outcome",
			},
			[]string{"status"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desk_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "desk_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) WizardStarted(result string) {
	if m == nil {
		return
	}
	m.WizardStarts.WithLabelValues(result).Inc()
}

func (m *Metrics) WizardRejected(kind string) {
	if m == nil {
		return
	}
	m.WizardRejections.WithLabelValues(kind).Inc()
}

func (m *Metrics) TicketCreated() {
	if m == nil {
		return
	}
	m.TicketsCreated.Inc()
}

func (m *Metrics) TicketClaimed() {
	if m == nil {
		return
	}
	m.TicketsClaimed.Inc()
}

// TicketClosed counts a closure. amount is added to the volume for completed tickets.
func (m *Metrics) TicketClosed(status string, amount *decimal.Decimal) {
	if m == nil {
		return
	}
	m.TicketsClosed.WithLabelValues(status).Inc()
	if amount != nil {
		m.VolumeCompleted.Add(amount.InexactFloat64())
	}
}

func (m *Metrics) TranscriptJob(status string) {
	if m == nil {
		return
	}
	m.TranscriptJobs.WithLabelValues(status).Inc()
}

func (m *Metrics) HTTPRequest(method, route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(seconds)
}
