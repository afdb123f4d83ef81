package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracker", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracker", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Records = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "tracker", Name: "records", Help: "Number of applications in the collection."},
	)
	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracker", Name: "persistence_write_failures_total", Help: "Failed collection saves by backend."},
		[]string{"backend"},
	)
	Imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracker", Name: "imports_total", Help: "Import attempts by outcome (added, none, format_error, busy, persist_error)."},
		[]string{"outcome"},
	)
	ImportedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tracker", Name: "import_records_total", Help: "Imported elements by result (added, duplicate, rejected)."},
		[]string{"result"},
	)
	Exports = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "tracker", Name: "exports_total", Help: "Number of collection exports."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Records)
	reg.MustRegister(PersistenceFailures)
	reg.MustRegister(Imports)
	reg.MustRegister(ImportedRecords)
	reg.MustRegister(Exports)
}
