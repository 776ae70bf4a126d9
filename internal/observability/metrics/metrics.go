// Package metrics holds the domain-level Prometheus counters. The HTTP
// request metrics live with the server; these track what the service
// actually does: handshakes, rotations and replay detections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HandshakesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_handshakes_total",
		Help: "Federated login handshakes by provider and result",
	}, []string{"provider", "result"})

	RotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_rotations_total",
		Help: "Refresh credential rotations by aggregate and result",
	}, []string{"kind", "result"})

	ReplaysDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_replays_detected_total",
		Help: "Rotated refresh credentials presented again",
	}, []string{"kind"})

	SweepDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_rows_deleted_total",
		Help: "Expired rows removed by the background sweeper",
	}, []string{"table"})
)
