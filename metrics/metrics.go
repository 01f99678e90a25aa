// Package metrics exposes Prometheus counters for the command router and the
// event dispatcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eatwhat_commands_total",
		Help: "Handled chat commands by command and outcome.",
	}, []string{"command", "outcome"})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eatwhat_events_total",
		Help: "Inbound events by post type and transport.",
	}, []string{"post_type", "transport"})

	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eatwhat_event_failures_total",
		Help: "Events whose handling failed and produced a failure reply.",
	}, []string{"post_type"})

	SendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eatwhat_send_errors_total",
		Help: "Outbound replies the transport failed to deliver.",
	}, []string{"transport"})
)

// Command records one routed command.
func Command(command, outcome string) {
	CommandsTotal.WithLabelValues(command, outcome).Inc()
}
