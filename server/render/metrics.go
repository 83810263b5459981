package render

import "github.com/prometheus/client_golang/prometheus"

var enginesCreated = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "topomapper",
	Subsystem: "render",
	Name:      "engines_created_total",
	Help:      "Visualization engine instances constructed",
})

var containerFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "topomapper",
	Subsystem: "render",
	Name:      "container_binding_failures_total",
	Help:      "Container-wait retry budgets exhausted",
})

var stabilizeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "topomapper",
	Subsystem: "render",
	Name:      "stabilization_seconds",
	Help:      "Time from engine construction to layout convergence",
})

func init() {
	prometheus.MustRegister(enginesCreated, containerFailures, stabilizeSeconds)
}
