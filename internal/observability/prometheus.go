package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// newPrometheusReader creates an OTel reader backed by a private registry
func newPrometheusReader() (sdkmetric.Reader, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}
	return exporter, registry, nil
}

// PrometheusEndpoint returns the path metrics are served on, or "" when disabled
func (om *Manager) PrometheusEndpoint() string {
	if om == nil || om.registry == nil {
		return ""
	}
	if om.config.Prometheus.Endpoint == "" {
		return "/metrics"
	}
	return om.config.Prometheus.Endpoint
}

// PrometheusHandler serves the scrape endpoint, or nil when Prometheus is disabled
func (om *Manager) PrometheusHandler() http.Handler {
	if om == nil || om.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(om.registry, promhttp.HandlerOpts{})
}
