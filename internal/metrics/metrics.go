// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes the gateway's operational counters for Prometheus
// scraping via the dashboard listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every instrument the loop and its components update.
type Metrics struct {
	Registry *prometheus.Registry

	CycleDuration  prometheus.Histogram
	CyclesTotal    prometheus.Counter
	DevicesKnown   prometheus.Gauge
	DevicesOnline  prometheus.Gauge
	ThreatsTotal   prometheus.Counter
	EnforceErrors  prometheus.Counter
	RetrainsTotal  prometheus.Counter
	DecoyTouches   prometheus.Counter
	PacketsWindow  prometheus.Gauge
}

// New builds the metric set on a private registry so tests can run several
// instances without collisions.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "warden",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one adaptive defense cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "cycles_total",
			Help:      "Completed defense cycles.",
		}),
		DevicesKnown: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "warden",
			Name:      "devices_known",
			Help:      "Devices in the registry.",
		}),
		DevicesOnline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "warden",
			Name:      "devices_online",
			Help:      "Devices with recent presence evidence.",
		}),
		ThreatsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "threats_total",
			Help:      "Threats emitted by the policy engine.",
		}),
		EnforceErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "enforcement_errors_total",
			Help:      "Failed enforcement operations.",
		}),
		RetrainsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "model_retrains_total",
			Help:      "Completed detector model retrains.",
		}),
		DecoyTouches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "decoy_interactions_total",
			Help:      "Decoy interactions recorded.",
		}),
		PacketsWindow: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "warden",
			Name:      "window_packets",
			Help:      "Packets observed in the last capture window.",
		}),
	}
}
