package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perspectron_messages_evaluated_total",
		Help: "Messages run through the scoring and policy pipeline.",
	})

	MessagesFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perspectron_messages_flagged_total",
		Help: "Messages that produced a positive moderation verdict.",
	}, []string{"signal"})

	ScoringFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perspectron_scoring_failures_total",
		Help: "Scoring service requests that failed or timed out.",
	})

	ReportsPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perspectron_reports_posted_total",
		Help: "Reports posted to the moderator channel, by reason.",
	}, []string{"reason"})

	ReportsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perspectron_reports_resolved_total",
		Help: "Reports resolved by a moderator action.",
	}, []string{"action"})

	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perspectron_commands_handled_total",
		Help: "In-band commands handled, by command name.",
	}, []string{"command"})
)
