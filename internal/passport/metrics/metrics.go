package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the passport module.
// Tracks passport issuance/destruction, batch skips, events emitted per
// type, and metadata render volume.
type Metrics struct {
	PassportsCreated   prometheus.Counter
	PassportsDestroyed prometheus.Counter
	BatchSkipped       prometheus.Counter
	EventsEmitted      *prometheus.CounterVec
	MetadataRenders    prometheus.Counter
}

// New creates a new Metrics instance with all passport module metrics registered.
func New() *Metrics {
	return &Metrics{
		PassportsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "soulpass_passports_created_total",
			Help: "Total number of passports issued",
		}),
		PassportsDestroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "soulpass_passports_destroyed_total",
			Help: "Total number of passports destroyed by their owners",
		}),
		BatchSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "soulpass_batch_entries_skipped_total",
			Help: "Batch onboarding entries skipped (null identity or duplicate owner)",
		}),
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "soulpass_ledger_events_emitted_total",
			Help: "Ledger events emitted, labelled by event type",
		}, []string{"type"}),
		MetadataRenders: promauto.NewCounter(prometheus.CounterOpts{
			Name: "soulpass_metadata_renders_total",
			Help: "Metadata documents rendered (cache misses)",
		}),
	}
}

// IncrementPassportsCreated records a successful passport issuance.
func (m *Metrics) IncrementPassportsCreated() {
	m.PassportsCreated.Inc()
}

// IncrementPassportsDestroyed records an owner-initiated destruction.
func (m *Metrics) IncrementPassportsDestroyed() {
	m.PassportsDestroyed.Inc()
}

// IncrementBatchSkipped records a batch entry skipped during onboarding.
func (m *Metrics) IncrementBatchSkipped() {
	m.BatchSkipped.Inc()
}

// IncrementEventsEmitted records one emitted ledger event of the given type.
func (m *Metrics) IncrementEventsEmitted(eventType string) {
	m.EventsEmitted.WithLabelValues(eventType).Inc()
}

// IncrementMetadataRenders records a metadata document render.
func (m *Metrics) IncrementMetadataRenders() {
	m.MetadataRenders.Inc()
}
