// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the world — agents, companies,
// orders, trades, market data, and world events. It has no dependencies on
// internal packages, so it can be imported by any layer.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// The HTTP API and the snapshot store emit amounts as bare JSON numbers,
	// not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// NewID returns a short random identifier for orders and trades.
func NewID() string {
	return uuid.NewString()[:8]
}

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: buy or sell.
type Side string

const (
	BUY  Side = "buy"
	SELL Side = "sell"
)

// ParseSide converts a wire string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(s)) {
	case BUY:
		return BUY, nil
	case SELL:
		return SELL, nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

// OrderType enumerates the supported order kinds.
type OrderType string

const (
	OrderTypeMarket OrderType = "market" // executes at the best available price, never rests
	OrderTypeLimit  OrderType = "limit"  // executes at the limit price or better, rests otherwise
)

// ParseOrderType converts a wire string into an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToLower(s)) {
	case OrderTypeMarket:
		return OrderTypeMarket, nil
	case OrderTypeLimit:
		return OrderTypeLimit, nil
	}
	return "", fmt.Errorf("invalid order type %q", s)
}

// OrderStatus tracks an order through its lifecycle. Transitions are
// monotonic: PENDING → PARTIAL → FILLED, or PENDING → CANCELLED.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CompanyStatus tracks a company through its lifecycle:
// PRIVATE → IPO → PUBLIC → BANKRUPT.
type CompanyStatus string

const (
	CompanyPrivate  CompanyStatus = "private"
	CompanyIPO      CompanyStatus = "ipo"
	CompanyPublic   CompanyStatus = "public"
	CompanyBankrupt CompanyStatus = "bankrupt"
)

// ————————————————————————————————————————————————————————————————————————
// Agents
// ————————————————————————————————————————————————————————————————————————

// Portfolio maps ticker → share quantity. Entries with quantity ≤ 0 are
// never stored; all mutation must go through Add.
type Portfolio map[string]decimal.Decimal

// Add adjusts the held quantity for a ticker and deletes the entry when it
// drops to zero or below.
func (p Portfolio) Add(ticker string, qty decimal.Decimal) {
	next := p[ticker].Add(qty)
	if next.Sign() <= 0 {
		delete(p, ticker)
		return
	}
	p[ticker] = next
}

// Get returns the held quantity for a ticker, zero if absent.
func (p Portfolio) Get(ticker string) decimal.Decimal {
	return p[ticker]
}

// Clone returns an independent copy of the portfolio.
func (p Portfolio) Clone() Portfolio {
	out := make(Portfolio, len(p))
	for t, q := range p {
		out[t] = q
	}
	return out
}

// Agent is a participant in the world: an AI with a wallet and a portfolio.
type Agent struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`  // total cash in ₳, including the reserved portion
	Reserved  decimal.Decimal `json:"reserved"` // cash escrowed against resting buy orders
	Portfolio Portfolio       `json:"portfolio"`

	Reputation  decimal.Decimal `json:"reputation"`
	TotalTrades int             `json:"total_trades"`
	TotalPnL    decimal.Decimal `json:"total_pnl"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Available returns the cash an agent can still commit: balance minus the
// escrow held for resting buy orders.
func (a *Agent) Available() decimal.Decimal {
	return a.Balance.Sub(a.Reserved)
}

// NetWorth values the agent at cash plus holdings marked to the given
// per-ticker prices. Unknown tickers count as zero.
func (a *Agent) NetWorth(prices map[string]decimal.Decimal) decimal.Decimal {
	worth := a.Balance
	for ticker, qty := range a.Portfolio {
		worth = worth.Add(qty.Mul(prices[ticker]))
	}
	return worth
}

// ————————————————————————————————————————————————————————————————————————
// Companies
// ————————————————————————————————————————————————————————————————————————

// Company is an issuer with a fixed share supply and a priced service.
type Company struct {
	ID          string        `json:"id"` // lowercase ticker
	Ticker      string        `json:"ticker"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	FounderID   string        `json:"founder_id"`
	Status      CompanyStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`

	// Tokenomics. TotalShares is fixed at creation; MarketCap is always
	// TotalShares × SharePrice and must be updated through SetSharePrice.
	TotalShares  decimal.Decimal `json:"total_shares"`
	PublicShares decimal.Decimal `json:"public_shares"` // shares offered at IPO
	SharePrice   decimal.Decimal `json:"share_price"`   // last trade price
	MarketCap    decimal.Decimal `json:"market_cap"`

	// Usage metrics: what the company is actually worth.
	DailyActiveUsers int             `json:"daily_active_users"`
	TotalAPICalls    int64           `json:"total_api_calls"`
	Revenue          decimal.Decimal `json:"revenue"` // accumulated since the last dividend

	// The service sold to agents.
	ServiceType string          `json:"service_type"`
	ServiceCost decimal.Decimal `json:"service_cost"` // ₳ per call
}

// SetSharePrice updates the last price and keeps MarketCap consistent.
func (c *Company) SetSharePrice(price decimal.Decimal) {
	c.SharePrice = price
	c.MarketCap = c.TotalShares.Mul(price)
}

// ————————————————————————————————————————————————————————————————————————
// Orders and trades
// ————————————————————————————————————————————————————————————————————————

// Order is a request to trade shares of one ticker. Orders are created by
// submission, mutated only by the matching engine, and never deleted.
type Order struct {
	ID      string    `json:"id"`
	AgentID string    `json:"agent_id"`
	Ticker  string    `json:"ticker"`
	Side    Side      `json:"side"`
	Type    OrderType `json:"order_type"`

	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"` // limit price; set to the effective price for market orders

	Status         OrderStatus     `json:"status"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	FilledPrice    decimal.Decimal `json:"filled_price"` // price of the most recent fill
	Reserved       decimal.Decimal `json:"-"`            // remaining cash escrow (buy orders only)

	CreatedAt time.Time  `json:"created_at"`
	FilledAt  *time.Time `json:"filled_at,omitempty"`
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsFilled reports whether the order is completely filled. Never compare
// quantities with ==; fills accumulate.
func (o *Order) IsFilled() bool {
	return o.FilledQuantity.GreaterThanOrEqual(o.Quantity)
}

// Open reports whether the order can still trade or rest on the book.
func (o *Order) Open() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPartial
}

// Trade records one execution between a buy and a sell order. Immutable
// once appended to the trade log.
type Trade struct {
	ID            string          `json:"id"`
	Ticker        string          `json:"ticker"`
	BuyerID       string          `json:"buyer_id"`
	SellerID      string          `json:"seller_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Timestamp     time.Time       `json:"timestamp"`
	BuyerOrderID  string          `json:"buyer_order_id"`
	SellerOrderID string          `json:"seller_order_id"`
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// PricePoint is one entry of a ticker's price history.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// MarketData is the derived per-ticker quote. Computed from live state,
// never stored.
type MarketData struct {
	Ticker    string          `json:"ticker"`
	LastPrice decimal.Decimal `json:"last_price"`
	Bid       decimal.Decimal `json:"bid"`        // best bid price, zero if none
	Ask       decimal.Decimal `json:"ask"`        // best ask price, zero if none
	Volume24h decimal.Decimal `json:"volume_24h"` // notional traded in the window
	High24h   decimal.Decimal `json:"high_24h"`
	Low24h    decimal.Decimal `json:"low_24h"`
	Change24h decimal.Decimal `json:"change_24h"` // percent vs the first price in the window
	MarketCap decimal.Decimal `json:"market_cap"`
}

// ————————————————————————————————————————————————————————————————————————
// World events
// ————————————————————————————————————————————————————————————————————————

// EventType classifies a WorldEvent.
type EventType string

const (
	EventJoin           EventType = "join"
	EventCompanyCreated EventType = "company_created"
	EventIPO            EventType = "ipo"
	EventTrade          EventType = "trade"
	EventDividend       EventType = "dividend"
	EventBankruptcy     EventType = "bankruptcy"
	EventNews           EventType = "news"
)

// WorldEvent is one entry of the append-only world log, fanned out to
// WebSocket subscribers and the journal.
type WorldEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"event_type"`
	Ticker    string         `json:"ticker,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Message   string         `json:"message"`
}

// ServiceUsage records one paid service call.
type ServiceUsage struct {
	Timestamp time.Time       `json:"timestamp"`
	AgentID   string          `json:"agent_id"`
	Ticker    string          `json:"company_ticker"`
	Cost      decimal.Decimal `json:"cost"`
	Success   bool            `json:"success"`
}
