// Package prometheus exposes engine counters as a
// prometheus.Collector.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authloop "github.com/mkellner/authloop"
	internalmetrics "github.com/mkellner/authloop/internal/metrics"
)

type metricsSource interface {
	MetricsSnapshot() authloop.MetricsSnapshot
}

// Exporter reads engine snapshots on every scrape.
type Exporter struct {
	source metricsSource
	descs  map[internalmetrics.ID]*prometheus.Desc
}

// NewExporter creates an Exporter over an [authloop.Engine] or any snapshot
// source.
func NewExporter(source metricsSource) *Exporter {
	descs := make(map[internalmetrics.ID]*prometheus.Desc, len(internalmetrics.Defs))
	for _, def := range internalmetrics.Defs {
		descs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return &Exporter{source: source, descs: descs}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range e.descs {
		ch <- desc
	}
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e == nil || e.source == nil {
		return
	}
	snapshot := e.source.MetricsSnapshot()
	for _, def := range internalmetrics.Defs {
		ch <- prometheus.MustNewConstMetric(
			e.descs[def.ID],
			prometheus.CounterValue,
			float64(snapshot.Counters[def.ID]),
		)
	}
}

// Handler returns an http.Handler serving only this exporter's metrics.
func (e *Exporter) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(e)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
