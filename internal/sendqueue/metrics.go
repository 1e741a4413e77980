package sendqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_send_queue_ticks_total",
		Help: "Number of send-queue ticks executed.",
	})

	itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_send_queue_items_total",
		Help: "Queue items processed, by outcome.",
	}, []string{"outcome"})

	staleLocksReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_send_queue_stale_locks_reclaimed_total",
		Help: "Locked items recycled by the stale-lock reclaim pass.",
	})
)

// RecordStaleReclaim feeds the reclaim counter from the worker pass
func RecordStaleReclaim(count int) {
	staleLocksReclaimed.Add(float64(count))
}
