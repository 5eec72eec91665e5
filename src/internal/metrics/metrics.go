// Package metrics registers the Prometheus collectors for the settlement
// service and serves them on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransfersInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transfers_initiated_total",
		Help: "Transfers initiated locally, by kind (local or interbank).",
	}, []string{"kind"})

	SagaTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_saga_transitions_total",
		Help: "Saga transition handler outcomes by hub event and result.",
	}, []string{"event", "outcome"})

	NegativeAcks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_negative_acks_total",
		Help: "Negative acknowledgements sent to the hub, by reason code.",
	}, []string{"reason"})

	HubReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_hub_reconnects_total",
		Help: "Reconnection attempts to the clearing hub.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
