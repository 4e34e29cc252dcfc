package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type poolMetrics struct {
	stakingOps    *prometheus.CounterVec
	lotteryOps    *prometheus.CounterVec
	roundsStarted prometheus.Counter
	drawsResolved prometheus.Counter
	httpLatency   *prometheus.HistogramVec
}

var (
	poolMetricsOnce sync.Once
	poolRegistry    *poolMetrics
)

// PoolMetrics returns the lazily-initialised metrics registry recording
// staking and lottery activity.
func PoolMetrics() *poolMetrics {
	poolMetricsOnce.Do(func() {
		poolRegistry = &poolMetrics{
			stakingOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "prizepool",
				Subsystem: "staking",
				Name:      "operations_total",
				Help:      "Staking operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			lotteryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "prizepool",
				Subsystem: "lottery",
				Name:      "operations_total",
				Help:      "Lottery operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			roundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "prizepool",
				Subsystem: "lottery",
				Name:      "rounds_started_total",
				Help:      "Count of lottery rounds opened.",
			}),
			drawsResolved: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "prizepool",
				Subsystem: "lottery",
				Name:      "draws_resolved_total",
				Help:      "Count of draws resolved by randomness delivery.",
			}),
			httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "prizepool",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
		}
		prometheus.MustRegister(
			poolRegistry.stakingOps,
			poolRegistry.lotteryOps,
			poolRegistry.roundsStarted,
			poolRegistry.drawsResolved,
			poolRegistry.httpLatency,
		)
	})
	return poolRegistry
}

// RecordStakingOp counts one staking operation outcome.
func (m *poolMetrics) RecordStakingOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.stakingOps.WithLabelValues(operation, outcome).Inc()
}

// RecordLotteryOp counts one lottery operation outcome.
func (m *poolMetrics) RecordLotteryOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.lotteryOps.WithLabelValues(operation, outcome).Inc()
}

// RecordRoundStarted counts an opened round.
func (m *poolMetrics) RecordRoundStarted() { m.roundsStarted.Inc() }

// RecordDrawResolved counts a resolved draw.
func (m *poolMetrics) RecordDrawResolved() { m.drawsResolved.Inc() }

// ObserveRequest records one gateway request's latency.
func (m *poolMetrics) ObserveRequest(route, method string, seconds float64) {
	m.httpLatency.WithLabelValues(route, method).Observe(seconds)
}
