package ops

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/walidbr/stockdeck/pkg/config"
)

// NewHandler returns the operational HTTP surface the watcher exposes:
// a liveness probe and the Prometheus scrape endpoint.
func NewHandler(cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Get("/healthz", healthzHandler(cfg))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func healthzHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cfg != nil {
			w.Header().Set("X-Stockdeck-Env", cfg.App.Env)
		}
		response := map[string]string{"status": "ok"}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		}
	}
}
