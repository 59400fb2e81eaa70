package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Auction kind labels used across the auction metrics.
const (
	KindCollateral = "collateral"
	KindSurplus    = "surplus"
	KindDebit      = "debit"
)

type auctionMetrics struct {
	created   *prometheus.CounterVec
	bids      *prometheus.CounterVec
	settled   *prometheus.CounterVec
	cancelled *prometheus.CounterVec
}

var (
	auctionMetricsOnce sync.Once
	auctionRegistry    *auctionMetrics
)

// Auctions returns the metrics registry tracking auction lifecycle events.
func Auctions() *auctionMetrics {
	auctionMetricsOnce.Do(func() {
		auctionRegistry = &auctionMetrics{
			created: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "auctions",
				Name:      "created_total",
				Help:      "Count of auctions opened, segmented by kind.",
			}, []string{"kind"}),
			bids: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "auctions",
				Name:      "bids_total",
				Help:      "Count of accepted bids, segmented by kind.",
			}, []string{"kind"}),
			settled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "auctions",
				Name:      "settled_total",
				Help:      "Count of auctions settled to a winner, segmented by kind.",
			}, []string{"kind"}),
			cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "auctions",
				Name:      "cancelled_total",
				Help:      "Count of auctions closed without settlement, segmented by kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			auctionRegistry.created,
			auctionRegistry.bids,
			auctionRegistry.settled,
			auctionRegistry.cancelled,
		)
	})
	return auctionRegistry
}

// RecordCreated increments the created counter for the supplied auction kind.
func (m *auctionMetrics) RecordCreated(kind string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(kind).Inc()
}

// RecordBid increments the accepted-bid counter for the supplied auction kind.
func (m *auctionMetrics) RecordBid(kind string) {
	if m == nil {
		return
	}
	m.bids.WithLabelValues(kind).Inc()
}

// RecordSettled increments the settled counter for the supplied auction kind.
func (m *auctionMetrics) RecordSettled(kind string) {
	if m == nil {
		return
	}
	m.settled.WithLabelValues(kind).Inc()
}

// RecordCancelled increments the cancelled counter for the supplied auction
// kind.
func (m *auctionMetrics) RecordCancelled(kind string) {
	if m == nil {
		return
	}
	m.cancelled.WithLabelValues(kind).Inc()
}
