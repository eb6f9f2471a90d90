package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	waitingCaptains = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_waiting_captains",
		Help: "Number of captains currently parked in a long poll.",
	})
	bufferedRides = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_buffered_rides",
		Help: "Number of unmatched ride requests buffered in memory.",
	})
	matchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_matches_total",
		Help: "Total ride-to-captain matches made.",
	})
	pollTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_poll_timeouts_total",
		Help: "Total long polls that resolved with no ride.",
	})
	duplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_duplicate_deliveries_total",
		Help: "Broker redeliveries dropped by ride-ID deduplication.",
	})
	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_buffer_evictions_total",
		Help: "Buffered rides expired because the buffer was full.",
	})
	acceptMismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_accept_mismatches_total",
		Help: "Accept attempts rejected because the offer belongs to another captain.",
	})
)
