package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Completed ledger transfers",
		},
		[]string{"kind"},
	)
	TransfersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_failed_total",
			Help: "Failed ledger transfers",
		},
		[]string{"reason"}, // insufficient_balance|account_not_found|invalid_amount|unavailable
	)
	CheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current audit worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(TransfersTotal)
	prometheus.MustRegister(TransfersFailed)
	prometheus.MustRegister(CheckoutsTotal)
	prometheus.MustRegister(WorkerQueueDepth)
}
