// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	botsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botmaker_bots_generated_total",
		Help: "Bot source files generated, by template",
	}, []string{"template"})

	packagesAssembled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botmaker_packages_assembled_total",
		Help: "Bot packages assembled for download",
	})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botmaker_auth_events_total",
		Help: "Auth endpoint operations by action and outcome",
	}, []string{"action", "outcome"}) // outcome=success|failure
)

// RecordBotGenerated counts one generated bot.
func RecordBotGenerated(template string) {
	botsGenerated.WithLabelValues(template).Inc()
}

// RecordPackageAssembled counts one assembled package.
func RecordPackageAssembled() {
	packagesAssembled.Inc()
}

// RecordAuthEvent counts one auth operation.
func RecordAuthEvent(action string, ok bool) {
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	authEvents.WithLabelValues(action, outcome).Inc()
}
