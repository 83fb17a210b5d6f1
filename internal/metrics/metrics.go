// Package metrics holds the prometheus collectors of the bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReportGuildOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scuttle_report_guild_outcomes_total",
		Help: "Weekly report outcomes per guild",
	}, []string{"outcome"})

	ReportRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scuttle_report_run_seconds",
		Help:    "Duration of a whole weekly report run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
	})

	ReportRunsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scuttle_report_runs_skipped_total",
		Help: "Weekly report triggers skipped because a run was in flight or held by another instance",
	})

	StatsAPIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scuttle_stats_api_request_duration_seconds",
		Help:    "Duration of requests to the stats API",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scuttle_commands_total",
		Help: "Slash commands handled",
	}, []string{"command", "status"})
)

// MustRegister registers every collector of the bot.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ReportGuildOutcomes,
		ReportRunSeconds,
		ReportRunsSkipped,
		StatsAPIRequestDuration,
		CommandsTotal,
	)
}

// ObserveAPIRequest records the duration and result of one stats API call.
func ObserveAPIRequest(operation string, start time.Time, err error) {
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	StatsAPIRequestDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// IncCommand counts one handled slash command.
func IncCommand(command string, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	CommandsTotal.WithLabelValues(command, status).Inc()
}
