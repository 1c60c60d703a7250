// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	SaleCreated   EventType = "sale.created"
	TradeExecuted EventType = "trade.executed"
	TradeRejected EventType = "trade.rejected"
	SaleGraduated EventType = "sale.graduated"
	SaleMigrated  EventType = "sale.migrated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of type t at the given time.
func NewBase(t EventType, at time.Time) BaseEvent {
	return BaseEvent{EventType: t, EventTime: at}
}

// SaleCreatedEvent is emitted once a new sale is persisted.
type SaleCreatedEvent struct {
	BaseEvent
	Mint        string
	Creator     string
	Ticker      string
	Curve       string
	TotalSupply uint64
	CreationFee uint64
}

// TradeExecutedEvent is emitted after a trade is settled and persisted.
type TradeExecutedEvent struct {
	BaseEvent
	Mint          string
	Trader        string
	Direction     string
	TokenAmount   uint64
	CounterAmount uint64
	ProtocolFee   uint64
	LiquidityFee  uint64
	Price         uint64
	MarketCap     uint64
}

// TradeRejectedEvent is emitted when the engine or a transfer refuses a trade.
type TradeRejectedEvent struct {
	BaseEvent
	Mint      string
	Trader    string
	Direction string
	Amount    uint64
	Reason    string
}

// SaleGraduatedEvent is emitted on the trade that crosses the threshold.
type SaleGraduatedEvent struct {
	BaseEvent
	Mint      string
	MarketCap uint64
	Threshold uint64
}

// SaleMigratedEvent is emitted after reserves reach the external pool.
type SaleMigratedEvent struct {
	BaseEvent
	Mint   string
	Base   uint64
	Tokens uint64
	Pool   string
}
