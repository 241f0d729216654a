// Package monitor exposes the Prometheus registry over HTTP.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry carrying the process and Go runtime collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Exporter serves /metrics for a registry
type Exporter struct {
	server *http.Server
}

// NewExporter creates an exporter listening on addr, e.g. ":2112"
func NewExporter(addr string, gatherer prometheus.Gatherer) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Exporter{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the HTTP handler of the exporter
func (e *Exporter) Handler() http.Handler {
	return e.server.Handler
}

// ListenAndServe blocks serving metrics until Shutdown is called
func (e *Exporter) ListenAndServe() error {
	if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
