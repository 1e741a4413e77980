package leadsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_lead_sync_runs_total",
		Help: "Lead sync runs, by result.",
	}, []string{"result"})

	leadRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_lead_sync_rows_total",
		Help: "Lead rows reconciled, by operation.",
	}, []string{"op"})
)
