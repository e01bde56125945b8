package client

import (
	"time"

	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

// The structs below mirror the server's JSON views. Exact market data
// and the enum types come from pkg/types; everything else is a slim
// client-side copy of what the wire actually carries.

// Info is the API identity card served at /api.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	Agents    int    `json:"agents"`
	Companies int    `json:"companies"`
	Trades    int    `json:"trades"`
}

// State is the world snapshot served at /state.
type State struct {
	Tick           int64                      `json:"tick"`
	UptimeHours    float64                    `json:"uptime_hours"`
	TotalAgents    int                        `json:"total_agents"`
	TotalCompanies int                        `json:"total_companies"`
	TotalTrades    int                        `json:"total_trades"`
	MarketCaps     map[string]decimal.Decimal `json:"market_caps"`
	Leaderboard    []LeaderboardEntry         `json:"leaderboard"`
}

// LeaderboardEntry is one row of the snapshot leaderboard.
type LeaderboardEntry struct {
	Name     string          `json:"name"`
	NetWorth decimal.Decimal `json:"net_worth"`
}

// Ranking is one row of /leaderboard.
type Ranking struct {
	Rank     int             `json:"rank"`
	Name     string          `json:"name"`
	AgentID  string          `json:"id"`
	NetWorth decimal.Decimal `json:"net_worth"`
	Trades   int             `json:"trades"`
}

// Agent is the full agent view.
type Agent struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	Reserved    decimal.Decimal `json:"reserved"`
	Portfolio   types.Portfolio `json:"portfolio"`
	Reputation  decimal.Decimal `json:"reputation"`
	TotalTrades int             `json:"total_trades"`
}

// AgentSummary is one row of the public agent list.
type AgentSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	TotalTrades int             `json:"total_trades"`
}

// Company is the company view.
type Company struct {
	Ticker           string              `json:"ticker"`
	Name             string              `json:"name"`
	Description      string              `json:"description"`
	Status           types.CompanyStatus `json:"status"`
	SharePrice       decimal.Decimal     `json:"share_price"`
	MarketCap        decimal.Decimal     `json:"market_cap"`
	ServiceType      string              `json:"service_type"`
	ServiceCost      decimal.Decimal     `json:"service_cost"`
	DailyActiveUsers int                 `json:"daily_active_users"`
	TotalAPICalls    int64               `json:"total_api_calls"`
}

// MarketData is the quote served at /market/{ticker}.
type MarketData = types.MarketData

// CreateCompanyRequest founds a company.
type CreateCompanyRequest struct {
	FounderID   string          `json:"founder_id"`
	Ticker      string          `json:"ticker"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ServiceType string          `json:"service_type"`
	ServiceCost decimal.Decimal `json:"service_cost"`
}

// OrderRequest places an order.
type OrderRequest struct {
	AgentID   string          `json:"agent_id"`
	Ticker    string          `json:"ticker"`
	Side      string          `json:"side"`
	OrderType string          `json:"order_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderResult is the settled state of a submitted order.
type OrderResult struct {
	OrderID        string            `json:"order_id"`
	Status         types.OrderStatus `json:"status"`
	FilledQuantity decimal.Decimal   `json:"filled_quantity"`
	FilledPrice    decimal.Decimal   `json:"filled_price"`
}

// Trade is one row of /trades.
type Trade struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	Buyer     string          `json:"buyer"`
	Seller    string          `json:"seller"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewsEvent is one row of /news.
type NewsEvent struct {
	Type      string    `json:"type"`
	Ticker    string    `json:"ticker,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Action is the generic success envelope for company actions.
type Action struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// apiError is the server's error envelope.
type apiError struct {
	Message string `json:"error"`
}
