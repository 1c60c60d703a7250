package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordSaleCreated("linear")
	c.RecordSaleCreated("constant_product")
	c.RecordTrade("buy", "linear", 1_000, 5, 5, time.Millisecond)
	c.RecordTrade("buy", "linear", 500, 2, 3, time.Millisecond)
	c.RecordRejected("sell", "insufficient_liquidity")
	c.RecordGraduation()
	c.RecordMigrationRetry()
	c.RecordMigrationRetry()
	c.RecordMigration(false)
	c.RecordMigration(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.trades.WithLabelValues("buy", "linear")))
	assert.Equal(t, 1_500.0, testutil.ToFloat64(c.volume.WithLabelValues("buy")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.feesCollected.WithLabelValues("protocol")))
	assert.Equal(t, 8.0, testutil.ToFloat64(c.feesCollected.WithLabelValues("liquidity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected.WithLabelValues("sell", "insufficient_liquidity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.graduations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeSales))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.migrations.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.migrations.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.retries))
}

func TestCollectorDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}
