package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeclarationsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civreg_declarations_submitted_total",
		Help: "Declarations persisted, by kind (birth, death)",
	}, []string{"kind"})

	ValidationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civreg_validation_decisions_total",
		Help: "Municipality decisions recorded on birth declarations, by outcome",
	}, []string{"decision"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civreg_notifications_total",
		Help: "Notification relay attempts, by outcome (sent, failed, skipped)",
	}, []string{"outcome"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civreg_logins_total",
		Help: "Login attempts, by outcome (success, failure)",
	}, []string{"outcome"})

	RevocationCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "civreg_token_revocation_check_duration_seconds",
		Help:    "Latency of revocation set lookups",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
	})
)

const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
