// Package observability exposes prometheus counters for the command
// pipeline. The registry is private so tests can build isolated instances.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	CommandsParsed  *prometheus.CounterVec
	ParseFailures   *prometheus.CounterVec
	CacheHits       prometheus.Counter
	ModelCalls      prometheus.Counter
	ActionsExecuted *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		CommandsParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loantrack_commands_parsed_total",
			Help: "Commands successfully parsed, by resulting action.",
		}, []string{"action"}),
		ParseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loantrack_parse_failures_total",
			Help: "Parse pipeline failures, by failure kind.",
		}, []string{"kind"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "loantrack_parse_cache_hits_total",
			Help: "Parse results served from the same-day semantic cache.",
		}),
		ModelCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "loantrack_model_calls_total",
			Help: "Calls made to the hosted model service.",
		}),
		ActionsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loantrack_actions_executed_total",
			Help: "Actions executed against the store, by action.",
		}, []string{"action"}),
	}
}
