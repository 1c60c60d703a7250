// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchcurve/internal/events"
)

// Header is the first row of every journal file.
var Header = []string{
	"timestamp", "event", "mint", "trader", "direction",
	"token_amount", "counter_amount", "protocol_fee", "liquidity_fee", "market_cap",
}

// Journal appends settled trades and lifecycle events to a CSV file.
// Rows are buffered and flushed on a ticker and on Close.
type Journal struct {
	mu     sync.Mutex
	writer *csv.Writer
	file   *os.File
	ticker *time.Ticker
	done   chan struct{}
	logger *zap.Logger
	path   string

	closeOnce sync.Once
	closeErr  error

	records uint64
	flushes uint64
	subs    []events.Subscription
}

// Open creates or appends to the journal at path.
func Open(path string, flushInterval time.Duration, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}

	j := &Journal{
		writer: csv.NewWriter(file),
		file:   file,
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
		logger: logger.Named("journal"),
		path:   path,
	}

	if stat.Size() == 0 {
		if err := j.writer.Write(Header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		j.writer.Flush()
	}

	go j.flushLoop()
	return j, nil
}

// Attach subscribes the journal to every event it knows how to record.
func (j *Journal) Attach(bus *events.Bus) {
	for _, t := range []events.EventType{
		events.SaleCreated, events.TradeExecuted, events.SaleGraduated, events.SaleMigrated,
	} {
		j.subs = append(j.subs, bus.SubscribeFunc(t, j.handle))
	}
}

func (j *Journal) handle(_ context.Context, e events.Event) error {
	row, ok := toRow(e)
	if !ok {
		return nil
	}
	return j.write(row)
}

func toRow(e events.Event) ([]string, bool) {
	ts := e.Timestamp().UTC().Format(time.RFC3339Nano)
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }

	switch ev := e.(type) {
	case events.TradeExecutedEvent:
		return []string{ts, string(ev.Type()), ev.Mint, ev.Trader, ev.Direction,
			u(ev.TokenAmount), u(ev.CounterAmount), u(ev.ProtocolFee), u(ev.LiquidityFee), u(ev.MarketCap)}, true
	case events.SaleCreatedEvent:
		return []string{ts, string(ev.Type()), ev.Mint, ev.Creator, "",
			u(ev.TotalSupply), u(ev.CreationFee), "", "", ""}, true
	case events.SaleGraduatedEvent:
		return []string{ts, string(ev.Type()), ev.Mint, "", "",
			"", "", "", "", u(ev.MarketCap)}, true
	case events.SaleMigratedEvent:
		return []string{ts, string(ev.Type()), ev.Mint, ev.Pool, "",
			u(ev.Tokens), u(ev.Base), "", "", ""}, true
	}
	return nil, false
}

func (j *Journal) write(row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write journal row: %w", err)
	}
	j.records++
	return nil
}

// Flush writes buffered rows and syncs the file.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *Journal) flushLocked() error {
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("csv writer error: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	j.flushes++
	return nil
}

func (j *Journal) flushLoop() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.Flush(); err != nil {
				j.logger.Error("Periodic journal flush failed",
					zap.String("file", j.path),
					zap.Error(err))
			}
		case <-j.done:
			return
		}
	}
}

// Close detaches from the bus, flushes and closes the file. Later calls
// return the first result.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() { j.closeErr = j.close() })
	return j.closeErr
}

func (j *Journal) close() error {
	for _, s := range j.subs {
		s.Unsubscribe()
	}
	close(j.done)
	j.ticker.Stop()

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.flushLocked(); err != nil {
		j.file.Close()
		return err
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.logger.Info("Journal closed",
		zap.String("file", j.path),
		zap.Uint64("records", j.records),
		zap.Uint64("flushes", j.flushes))
	return nil
}

// Stats returns the number of rows written and flushes performed.
func (j *Journal) Stats() (records, flushes uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records, j.flushes
}
