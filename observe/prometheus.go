package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus exposition format.
//
// The prometheus metrics exporter registers with the default Prometheus
// registerer, so this handler only reports probe metrics when
// MetricsConfig.Exporter is "prometheus".
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
