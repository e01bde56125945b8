package api

import (
	"time"

	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

// Request bodies.

type joinRequest struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
}

type createCompanyRequest struct {
	FounderID   string          `json:"founder_id"`
	Ticker      string          `json:"ticker"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ServiceType string          `json:"service_type"`
	ServiceCost decimal.Decimal `json:"service_cost"`
}

type ipoRequest struct {
	Ticker string          `json:"ticker"` // informational; the path ticker wins
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
}

type useServiceRequest struct {
	AgentID string `json:"agent_id"`
	Ticker  string `json:"ticker"` // informational; the path ticker wins
}

type orderRequest struct {
	AgentID   string          `json:"agent_id"`
	Ticker    string          `json:"ticker"`
	Side      string          `json:"side"`       // "buy" or "sell"
	OrderType string          `json:"order_type"` // "limit" (default) or "market"
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Response views. Internal records carry more than the API exposes, so
// each lookup maps through one of these.

type agentView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	Reserved    decimal.Decimal `json:"reserved"`
	Portfolio   types.Portfolio `json:"portfolio"`
	Reputation  decimal.Decimal `json:"reputation"`
	TotalTrades int             `json:"total_trades"`
}

func newAgentView(a types.Agent) agentView {
	return agentView{
		ID:          a.ID,
		Name:        a.Name,
		Balance:     a.Balance,
		Reserved:    a.Reserved,
		Portfolio:   a.Portfolio,
		Reputation:  a.Reputation,
		TotalTrades: a.TotalTrades,
	}
}

type agentSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	TotalTrades int             `json:"total_trades"`
}

type companyView struct {
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

func newCompanyView(c types.Company) companyView {
	return companyView{
		Ticker:           c.Ticker,
		Name:             c.Name,
		Description:      c.Description,
		Status:           c.Status,
		SharePrice:       c.SharePrice,
		MarketCap:        c.MarketCap,
		ServiceType:      c.ServiceType,
		ServiceCost:      c.ServiceCost,
		DailyActiveUsers: c.DailyActiveUsers,
		TotalAPICalls:    c.TotalAPICalls,
	}
}

type orderResult struct {
	OrderID        string            `json:"order_id"`
	Status         types.OrderStatus `json:"status"`
	FilledQuantity decimal.Decimal   `json:"filled_quantity"`
	FilledPrice    decimal.Decimal   `json:"filled_price"`
}

type tradeView struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	Buyer     string          `json:"buyer"`
	Seller    string          `json:"seller"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

type newsItem struct {
	Type      string    `json:"type"`
	Ticker    string    `json:"ticker,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type infoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	Agents    int    `json:"agents"`
	Companies int    `json:"companies"`
	Trades    int    `json:"trades"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
