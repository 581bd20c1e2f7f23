package api

import (
	"net/http"

	"github.com/bodytwin/platform/pkg/api/middleware"
	"github.com/bodytwin/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

type RouterOptions struct {
	MaxRequestBody int64
	// RetrainPerSecond and RetrainBurst bound retrain requests; zero
	// disables the limit and fractions allow less than one per second.
	RetrainPerSecond float64
	RetrainBurst     int
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS)
	if opts.MaxRequestBody > 0 {
		r.Use(middleware.BodyLimit(opts.MaxRequestBody))
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	var guard func(http.Handler) http.Handler
	if opts.RetrainPerSecond > 0 {
		guard = middleware.RateLimit(opts.RetrainPerSecond, opts.RetrainBurst)
	}
	h.RegisterRetrain(r, guard)
	h.Register(r)
	return r
}
