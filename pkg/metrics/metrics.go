// Package metrics holds the Prometheus collectors of the stream client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streamclient"

const (
	TaskResultOK    = "ok"
	TaskResultPanic = "panic"

	TeardownPathExecutor = "executor"
	TeardownPathDirect   = "direct"

	FailureReasonInvalidURL          = "invalid_url"
	FailureReasonUnsupportedProtocol = "unsupported_protocol"
	FailureReasonConstruction        = "construction"
)

var (
	PlayersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "players_created_total",
		Help:      "Amount of players created, by protocol family and security mode.",
	}, []string{"family", "security"})

	CreateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classification_failures_total",
		Help:      "Amount of failed player creations, by reason.",
	}, []string{"reason"})

	Teardowns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "teardowns_total",
		Help:      "Amount of player teardowns, by the path they took.",
	}, []string{"path"})

	ExecutorTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "executor_tasks_total",
		Help:      "Amount of executed executor tasks, by result.",
	}, []string{"result"})
)
