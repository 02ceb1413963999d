package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for scan throughput and decode health.
var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_total",
			Help: "Total number of scan attempts by classification status",
		},
		[]string{"status"},
	)

	DecodeAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_decode_attempts_total",
			Help: "Total number of frames handed to the QR decoder",
		},
	)

	DecodeHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_decode_hits_total",
			Help: "Total number of frames that yielded a QR payload",
		},
	)

	HistoryLoadRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_history_load_retries_total",
			Help: "Total number of retried scan history loads",
		},
	)

	LiveUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_live_updates_total",
			Help: "Total number of scan results merged from the change feed",
		},
	)
)

// Register installs all collectors on the given registerer; main calls this
// once with the default registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ScansTotal,
		DecodeAttemptsTotal,
		DecodeHitsTotal,
		HistoryLoadRetriesTotal,
		LiveUpdatesTotal,
	)
}
