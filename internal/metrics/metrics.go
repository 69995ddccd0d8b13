// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whosaid"

var (
	LobbiesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lobbies_active",
		Help:      "Number of lobbies currently held in memory.",
	})

	LobbiesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lobbies_closed_total",
		Help:      "Lobbies closed, by reason.",
	}, []string{"reason"})

	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_started_total",
		Help:      "Games started by a lobby creator.",
	})

	RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_started_total",
		Help:      "Rounds generated and broadcast.",
	})

	RoundsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_ended_total",
		Help:      "Rounds ended, by trigger (all_answered, timeout, player_left).",
	}, []string{"trigger"})

	AnswersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_submitted_total",
		Help:      "Scored answers, by correctness.",
	}, []string{"correct"})

	CommandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_rejected_total",
		Help:      "Inbound lobby commands rejected, by error kind.",
	}, []string{"kind"})
)
