package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessedTotal tracks events drained from a pipeline queue.
	EventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predmkt_ingest_events_processed_total",
		Help: "Total number of events drained from a pipeline queue",
	}, []string{"queue", "kind"})

	// EventsDroppedTotal tracks events discarded without being persisted.
	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predmkt_ingest_events_dropped_total",
		Help: "Total number of events dropped without being persisted",
	}, []string{"reason"})

	// QueueDepth tracks the buffered length of a pipeline queue.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "predmkt_ingest_queue_depth",
		Help: "Current buffered length of a pipeline queue",
	}, []string{"queue"})

	// MarketsDiscoveredTotal tracks new markets observed by the discovery loop.
	MarketsDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predmkt_ingest_markets_discovered_total",
		Help: "Total number of new markets observed by the discovery loop",
	})

	// MarketsClosedTotal tracks markets removed by the discovery loop.
	MarketsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predmkt_ingest_markets_closed_total",
		Help: "Total number of markets removed by the discovery loop",
	})

	// ForwardFilledSnapshotsTotal tracks synthetic heartbeat snapshots emitted.
	ForwardFilledSnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predmkt_ingest_forward_filled_snapshots_total",
		Help: "Total number of synthetic heartbeat snapshots emitted by the forward-filler",
	})
)
