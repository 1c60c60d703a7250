// internal/utils/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "launchcurve"

// Collector holds the launchpad prometheus metrics. Create one per registry.
type Collector struct {
	trades        *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	volume        *prometheus.CounterVec
	feesCollected *prometheus.CounterVec
	salesCreated  *prometheus.CounterVec
	graduations   prometheus.Counter
	migrations    *prometheus.CounterVec
	retries       prometheus.Counter
	tradeDuration *prometheus.HistogramVec
	activeSales   prometheus.Gauge
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Number of executed trades",
		}, []string{"direction", "curve"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_rejected_total",
			Help:      "Number of trades rejected by the engine or a collaborator",
		}, []string{"direction", "reason"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_base_units_total",
			Help:      "Base units moved by executed trades",
		}, []string{"direction"}),
		feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_base_units_total",
			Help:      "Fees collected in base units",
		}, []string{"share"}),
		salesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_created_total",
			Help:      "Number of sales created",
		}, []string{"curve"}),
		graduations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graduations_total",
			Help:      "Number of sales that crossed the graduation threshold",
		}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Finalize outcomes against the external pool",
		}, []string{"status"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_retries_total",
			Help:      "Failed migration attempts that were retried",
		}),
		tradeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_duration_seconds",
			Help:      "Time spent executing a trade including transfers and persistence",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"direction"}),
		activeSales: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sales",
			Help:      "Sales currently accepting trades",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.trades, c.rejected, c.volume, c.feesCollected, c.salesCreated,
		c.graduations, c.migrations, c.retries, c.tradeDuration, c.activeSales,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordSaleCreated counts a new sale and marks it active.
func (c *Collector) RecordSaleCreated(curve string) {
	c.salesCreated.WithLabelValues(curve).Inc()
	c.activeSales.Inc()
}

// RecordTrade records an executed trade.
func (c *Collector) RecordTrade(direction, curve string, base, protocolFee, liquidityFee uint64, duration time.Duration) {
	c.trades.WithLabelValues(direction, curve).Inc()
	c.volume.WithLabelValues(direction).Add(float64(base))
	c.feesCollected.WithLabelValues("protocol").Add(float64(protocolFee))
	c.feesCollected.WithLabelValues("liquidity").Add(float64(liquidityFee))
	c.tradeDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordRejected records a trade that did not execute.
func (c *Collector) RecordRejected(direction, reason string) {
	c.rejected.WithLabelValues(direction, reason).Inc()
}

// RecordGraduation counts a graduation; the sale stops being active.
func (c *Collector) RecordGraduation() {
	c.graduations.Inc()
	c.activeSales.Dec()
}

// RecordMigration counts one Finalize outcome, however many attempts it took.
func (c *Collector) RecordMigration(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.migrations.WithLabelValues(status).Inc()
}

// RecordMigrationRetry counts a failed attempt that will be retried.
func (c *Collector) RecordMigrationRetry() {
	c.retries.Inc()
}
