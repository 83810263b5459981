package handlers

import "github.com/prometheus/client_golang/prometheus"

var httpHandle = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "topomapper",
	Subsystem: "server",
	Name:      "http_handled_seconds",
	Help:      "Handled HTTP request latency",
}, []string{"path"})

var uploadsHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "topomapper",
	Subsystem: "server",
	Name:      "uploads_handled_total",
	Help:      "Configuration uploads by format and outcome",
}, []string{"format", "outcome"})

func init() {
	prometheus.MustRegister(httpHandle, uploadsHandled)
}
