// Package metrics exposes the node's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChainHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rblocknode",
		Name:      "chain_height",
		Help:      "Height of the current chain tip.",
	})

	Difficulty = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rblocknode",
		Name:      "difficulty",
		Help:      "Current block difficulty word.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rblocknode",
		Name:      "peers_connected",
		Help:      "Number of configured peers that mined blocks are pushed to.",
	})

	MiningAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rblocknode",
		Name:      "mining_nonce_attempts_total",
		Help:      "Total nonce increments tried while mining blocks.",
	})

	BlocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rblocknode",
		Name:      "blocks_mined_total",
		Help:      "Total blocks successfully mined locally.",
	})

	BlocksAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rblocknode",
		Name:      "blocks_accepted_total",
		Help:      "Total blocks accepted into the chain, from any source.",
	})

	BlocksRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rblocknode",
		Name:      "blocks_rejected_total",
		Help:      "Blocks rejected by the store, labeled by rejection reason.",
	}, []string{"reason"})

	PushesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rblocknode",
		Name:      "peer_pushes_total",
		Help:      "Inbound peer requests, labeled by kind and resulting status.",
	}, []string{"kind", "status"})

	StoreSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rblocknode",
		Name:      "store_size_bytes",
		Help:      "Size of the on-disk bbolt database file.",
	})

	UptimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rblocknode",
		Name:      "uptime_seconds",
		Help:      "Node uptime in seconds.",
	})
)

func init() {
	prometheus.MustRegister(
		ChainHeight,
		Difficulty,
		PeersConnected,
		MiningAttempts,
		BlocksMined,
		BlocksAccepted,
		BlocksRejected,
		PushesReceived,
		StoreSizeBytes,
		UptimeSeconds,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
