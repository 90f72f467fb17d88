// Package metrics holds the Prometheus collectors shared by the bot runtime.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Updates counts incoming updates by kind (message, callback, inline_query, other).
	Updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gobot_ui_updates_total",
			Help: "Total number of received updates",
		},
		[]string{"kind"},
	)

	// Handled counts handler runs by handler name and status (ok|fail|skip).
	Handled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gobot_ui_handler_runs_total",
			Help: "Total number of handler runs",
		},
		[]string{"handler", "status"},
	)

	HandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gobot_ui_handler_duration_seconds",
			Help:    "Handler execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"handler"},
	)

	// Messages counts sent or edited messages, split by keyboard presence.
	Messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gobot_ui_messages_total",
			Help: "Total number of messages sent or edited by handlers",
		},
		[]string{"op", "kb"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gobot_ui_rate_limited_total",
			Help: "Updates dropped by the rate limiter",
		},
		[]string{"kind"},
	)

	// StateCache counts layout FSM reads served from the shared cache (hit|miss).
	StateCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gobot_ui_state_cache_total",
			Help: "FSM data reads by cache result",
		},
		[]string{"result"},
	)

	// Sends counts outbound jobs run by the sender dispatcher by action and result (ok|fail|fallback).
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gobot_ui_sends_total",
			Help: "Outbound Telegram calls executed by the dispatcher",
		},
		[]string{"action", "result"},
	)

	// PayloadDecodes counts callback and deep-link decode attempts (ok|no_match).
	PayloadDecodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gobot_ui_payload_decodes_total",
			Help: "Callback and deep-link payload decode attempts",
		},
		[]string{"channel", "result"},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Updates)
		prometheus.MustRegister(Handled)
		prometheus.MustRegister(HandlerDuration)
		prometheus.MustRegister(Messages)
		prometheus.MustRegister(RateLimited)
		prometheus.MustRegister(StateCache)
		prometheus.MustRegister(Sends)
		prometheus.MustRegister(PayloadDecodes)
	})
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHandler records a finished handler run.
func RecordHandler(handler, status string, took time.Duration) {
	Handled.WithLabelValues(handler, status).Inc()
	HandlerDuration.WithLabelValues(handler).Observe(took.Seconds())
}

// RecordMessage records a message send or edit.
func RecordMessage(op string, kb bool) {
	label := "no"
	if kb {
		label = "yes"
	}
	Messages.WithLabelValues(op, label).Inc()
}

// RecordDecode records a payload decode attempt.
func RecordDecode(channel string, ok bool) {
	result := "no_match"
	if ok {
		result = "ok"
	}
	PayloadDecodes.WithLabelValues(channel, result).Inc()
}
