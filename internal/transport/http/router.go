package http

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScanAPI bundles everything the scan endpoints need from the scan service.
type ScanAPI interface {
	ScanSubmitter
	ScanLoader
	ScanStreamer
}

// NewRouter assembles the full API surface: public health and metrics, and
// the authenticated event/scan routes, wrapped in CORS and request logging.
func NewRouter(events EventService, scans ScanAPI, jwtSecret []byte, corsOrigins []string, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return Authenticate(jwtSecret, next)
	})
	api.Handle("/events", HandleEvents(events)).Methods(http.MethodGet, http.MethodPost)
	api.Handle("/events/{id}", HandleEvent(events)).Methods(http.MethodGet, http.MethodPatch, http.MethodDelete)
	api.Handle("/events/{id}/tickets/{num}/qr", HandleTicketQR(events)).Methods(http.MethodGet)
	api.Handle("/scans", HandleListScans(scans, logger)).Methods(http.MethodGet)
	api.Handle("/scans", HandleSubmitScan(scans)).Methods(http.MethodPost)
	api.Handle("/scans/stream", HandleScanStream(scans)).Methods(http.MethodGet)

	r.NotFoundHandler = NotFoundHandler()
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	return RequestLogger(CORS(corsOrigins, r), logger)
}
