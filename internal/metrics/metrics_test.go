package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.WizardStarted("started")
	m.WizardStarted("started")
	m.WizardStarted("blacklisted")
	m.TicketCreated()
	amount := decimal.RequireFromString("12.50")
	m.TicketClosed("completed", &amount)
	m.TicketClosed("cancelled", nil)

	if got := testutil.ToFloat64(m.WizardStarts.WithLabelValues("started")); got != 2 {
		t.Errorf("started = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TicketsCreated); got != 1 {
		t.Errorf("created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TicketsClosed.WithLabelValues("cancelled")); got != 1 {
		t.Errorf("cancelled = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.VolumeCompleted); got != 12.5 {
		t.Errorf("volume = %v, want 12.5", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.WizardStarted("started")
	m.TicketClosed("completed", nil)
	m.HTTPRequest("GET", "/", "200", 0.1)
}
