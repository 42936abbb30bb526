package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PortalMetrics records portal round trips and cache behavior.
type PortalMetrics struct {
	roundTripDuration *prometheus.HistogramVec
	roundTripOutcome  *prometheus.CounterVec
	desyncReinits     prometheus.Counter
	cacheLookups      *prometheus.CounterVec
	seederIngested    prometheus.Counter
}

// NewPortalMetrics registers the portal metrics on the provided registerer.
func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	if reg == nil {
		return &PortalMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_round_trip_seconds",
		Help:    "Duration of portal round trips in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_round_trip_outcome",
		Help: "Portal round trips by kind and outcome.",
	}, []string{"kind", "outcome"})
	desync := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_desync_reinits",
		Help: "Forced session reinitializations after a desync.",
	})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_cache_lookups",
		Help: "Price cache lookups by tier and result.",
	}, []string{"tier", "result"})
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seeder_records_ingested",
		Help: "Line items ingested into the knowledge store by the seeder.",
	})
	reg.MustRegister(duration, outcome, desync, cache, ingested)
	return &PortalMetrics{
		roundTripDuration: duration,
		roundTripOutcome:  outcome,
		desyncReinits:     desync,
		cacheLookups:      cache,
		seederIngested:    ingested,
	}
}

// ObserveRoundTrip records the duration of a portal round trip.
func (m *PortalMetrics) ObserveRoundTrip(kind string, duration time.Duration) {
	if m == nil || m.roundTripDuration == nil {
		return
	}
	m.roundTripDuration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncRoundTrip counts a round trip outcome for the given kind.
func (m *PortalMetrics) IncRoundTrip(kind, outcome string) {
	if m == nil || m.roundTripOutcome == nil {
		return
	}
	m.roundTripOutcome.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncDesyncReinit counts a forced reinitialization.
func (m *PortalMetrics) IncDesyncReinit() {
	if m == nil || m.desyncReinits == nil {
		return
	}
	m.desyncReinits.Inc()
}

// IncCacheLookup counts a cache lookup by tier (exact/fuzzy) and result (hit/miss).
func (m *PortalMetrics) IncCacheLookup(tier, result string) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	m.cacheLookups.WithLabelValues(normalizeLabel(tier), normalizeLabel(result)).Inc()
}

// AddSeederIngested counts records the seeder pushed into the knowledge store.
func (m *PortalMetrics) AddSeederIngested(n int) {
	if m == nil || m.seederIngested == nil || n <= 0 {
		return
	}
	m.seederIngested.Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
