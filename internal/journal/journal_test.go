package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchcurve/internal/events"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestJournalRecordsBusEvents(t *testing.T) {
	logger := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "trades", "journal.csv")

	j, err := Open(path, time.Hour, logger)
	require.NoError(t, err)

	bus := events.NewBus(logger, 8)
	j.Attach(bus)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, events.TradeExecutedEvent{
		BaseEvent:     events.NewBase(events.TradeExecuted, at),
		Mint:          "mint1",
		Trader:        "alice",
		Direction:     "buy",
		TokenAmount:   100,
		CounterAmount: 10_049_500,
		ProtocolFee:   50_247,
		LiquidityFee:  50_248,
		MarketCap:     123,
	}))
	require.NoError(t, bus.PublishSync(ctx, events.SaleGraduatedEvent{
		BaseEvent: events.NewBase(events.SaleGraduated, at),
		Mint:      "mint1",
		MarketCap: 999,
	}))
	// Unknown event types are ignored.
	require.NoError(t, bus.PublishSync(ctx, events.TradeRejectedEvent{
		BaseEvent: events.NewBase(events.TradeRejected, at),
	}))

	require.NoError(t, j.Close())
	require.NoError(t, bus.Shutdown(ctx))

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"2024-05-01T12:00:00Z", "trade.executed", "mint1", "alice", "buy",
		"100", "10049500", "50247", "50248", "123"}, rows[1])
	assert.Equal(t, "sale.graduated", rows[2][1])
	assert.Equal(t, "999", rows[2][9])

	records, flushes := j.Stats()
	assert.Equal(t, uint64(2), records)
	assert.GreaterOrEqual(t, flushes, uint64(1))
}

func TestJournalAppendsWithoutSecondHeader(t *testing.T) {
	logger := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "journal.csv")

	for i := 0; i < 2; i++ {
		j, err := Open(path, time.Hour, logger)
		require.NoError(t, err)
		require.NoError(t, j.handle(context.Background(), events.SaleCreatedEvent{
			BaseEvent:   events.NewBase(events.SaleCreated, time.Now()),
			Mint:        "mint",
			TotalSupply: 1_000,
		}))
		require.NoError(t, j.Close())
	}

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "sale.created", rows[2][1])
}

func TestJournalCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	j, err := Open(path, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	j.Attach(bus)

	require.NoError(t, j.Close())
	assert.NotPanics(t, func() { assert.NoError(t, j.Close()) })
	assert.Zero(t, bus.Stats().HandlersByType[events.TradeExecuted])
}
