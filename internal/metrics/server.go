// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wivrn-project/wivrnd/internal/config"
)

const readTimeout = 3 * time.Second

// CreateMetricsServer blocks serving /metrics until the listener
// fails; callers run it in its own goroutine. A no-op when metrics are
// disabled in configuration.
func CreateMetricsServer(cfg *config.Config) error {
	if !cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Metrics.ListenAddr, cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}
	return server.ListenAndServe()
}
