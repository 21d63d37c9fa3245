// Package metrics exposes upgrade activity as prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

var _ upgrade.Metrics = (*Collector)(nil)

// Collector records coordinator activity in its own registry
type Collector struct {
	registry *prometheus.Registry

	upgradesStarted *prometheus.CounterVec
	statuses        *prometheus.CounterVec
	resets          *prometheus.CounterVec
}

// New creates a collector with a private registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		upgradesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "repo_upgrade",
				Name:      "upgrades_started_total",
				Help:      "Total number of upgrade runs started by mode",
			},
			[]string{"mode"},
		),

		statuses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "repo_upgrade",
				Name:      "status_total",
				Help:      "Total number of status messages received by status",
			},
			[]string{"status"},
		),

		resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "repo_upgrade",
				Name:      "resets_total",
				Help:      "Total number of confirmed resets by mode and result",
			},
			[]string{"mode", "result"},
		),
	}
	c.registry.MustRegister(c.upgradesStarted, c.statuses, c.resets)
	return c
}

func (c *Collector) UpgradeStarted(mode string) {
	c.upgradesStarted.WithLabelValues(mode).Inc()
}

func (c *Collector) StatusReceived(status progress.Status) {
	c.statuses.WithLabelValues(status.String()).Inc()
}

func (c *Collector) ResetFinished(mode string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.resets.WithLabelValues(mode, result).Inc()
}

// Handler serves the collected metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
