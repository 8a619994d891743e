// Package metrics счётчики Prometheus для аутентификации и подписок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты проверки вызова.
const (
	ResultAccepted  = "accepted"
	ResultCompleted = "completed"
	ResultRejected  = "rejected"
	ResultLocked    = "locked"
)

type Metrics struct {
	ChallengesIssued     *prometheus.CounterVec
	Verifications        *prometheus.CounterVec
	SubscriptionsCreated *prometheus.CounterVec
}

// New регистрирует счётчики в reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChallengesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vocal_authn_challenges_issued_total",
			Help: "Total number of authentication challenges issued",
		}, []string{"challenge_type"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vocal_authn_verifications_total",
			Help: "Total number of challenge verification attempts by result",
		}, []string{"result"}),
		SubscriptionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vocal_subscriptions_created_total",
			Help: "Total number of subscriptions created",
		}, []string{"demand_type"}),
	}
}

func (m *Metrics) IncrementChallengesIssued(challengeType string) {
	m.ChallengesIssued.WithLabelValues(challengeType).Inc()
}

func (m *Metrics) IncrementVerifications(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementSubscriptionsCreated(demandType string) {
	m.SubscriptionsCreated.WithLabelValues(demandType).Inc()
}
