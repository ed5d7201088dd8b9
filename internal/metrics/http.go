package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the Prometheus metrics HTTP handler.
// It serves everything registered through promauto.
func Handler() http.Handler {
	return promhttp.Handler()
}
