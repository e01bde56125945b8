// Package exchange implements AIEX, the central exchange of the world:
// agent and company registries, order admission and matching, settlement
// against balances and portfolios, and derived market data.
//
// The exchange holds no lock of its own. The owning world serializes every
// call under its single world lock; see internal/world.
package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aiverse/internal/book"
	"aiverse/pkg/types"
)

// Config carries the economic constants of the exchange.
type Config struct {
	CreationCost decimal.Decimal // charged to a founder on company creation
	TotalShares  decimal.Decimal // share supply minted per company
}

// DefaultConfig returns the stock economy: 10,000 ₳ to found a company,
// 1,000,000 shares per company.
func DefaultConfig() Config {
	return Config{
		CreationCost: decimal.NewFromInt(10_000),
		TotalShares:  decimal.NewFromInt(1_000_000),
	}
}

// Exchange owns all agents, companies, order books, orders, the trade log,
// and per-ticker price history.
type Exchange struct {
	cfg Config

	agents    map[string]*types.Agent
	companies map[string]*types.Company // ticker → company
	books     map[string]*book.Book
	orders    map[string]*types.Order // order id → order, never deleted
	trades    []*types.Trade

	priceHistory map[string][]types.PricePoint

	// emit publishes a world event from inside settlement. Set by the
	// owning world; never nil.
	emit func(types.WorldEvent)
}

// New creates an empty exchange. emit receives world events produced during
// settlement and may be nil.
func New(cfg Config, emit func(types.WorldEvent)) *Exchange {
	if emit == nil {
		emit = func(types.WorldEvent) {}
	}
	return &Exchange{
		cfg:          cfg,
		agents:       make(map[string]*types.Agent),
		companies:    make(map[string]*types.Company),
		books:        make(map[string]*book.Book),
		orders:       make(map[string]*types.Order),
		priceHistory: make(map[string][]types.PricePoint),
		emit:         emit,
	}
}

// ————————————————————————————————————————————————————————————————————————
// Agents
// ————————————————————————————————————————————————————————————————————————

// RegisterAgent creates an agent with the given starting balance. Calling
// it again with a known id returns the existing agent untouched.
func (e *Exchange) RegisterAgent(id, name string, initialBalance decimal.Decimal) *types.Agent {
	if a, ok := e.agents[id]; ok {
		return a
	}
	a := &types.Agent{
		ID:         id,
		Name:       name,
		Balance:    initialBalance,
		Portfolio:  types.Portfolio{},
		Reputation: decimal.NewFromInt(100),
		CreatedAt:  time.Now(),
	}
	e.agents[id] = a
	return a
}

// Agent returns the live agent record, or nil.
func (e *Exchange) Agent(id string) *types.Agent {
	return e.agents[id]
}

// Agents returns the live agent records in no particular order.
func (e *Exchange) Agents() []*types.Agent {
	out := make([]*types.Agent, 0, len(e.agents))
	for _, a := range e.agents {
		out = append(out, a)
	}
	return out
}

// GrantIncome credits every agent with the given amount.
func (e *Exchange) GrantIncome(amount decimal.Decimal) {
	for _, a := range e.agents {
		a.Balance = a.Balance.Add(amount)
	}
}

// ————————————————————————————————————————————————————————————————————————
// Companies
// ————————————————————————————————————————————————————————————————————————

// CreateCompany founds a company: the founder pays the creation cost and
// receives the entire share supply. A fresh order book and price history
// are allocated for the ticker.
func (e *Exchange) CreateCompany(founderID, ticker, name, description, serviceType string, serviceCost decimal.Decimal) (*types.Company, error) {
	founder, ok := e.agents[founderID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	if founder.Available().LessThan(e.cfg.CreationCost) {
		return nil, ErrInsufficientFunds
	}

	ticker = strings.ToUpper(ticker)
	if _, taken := e.companies[ticker]; taken {
		return nil, ErrTickerTaken
	}

	founder.Balance = founder.Balance.Sub(e.cfg.CreationCost)

	c := &types.Company{
		ID:          strings.ToLower(ticker),
		Ticker:      ticker,
		Name:        name,
		Description: description,
		FounderID:   founderID,
		Status:      types.CompanyPrivate,
		CreatedAt:   time.Now(),
		TotalShares: e.cfg.TotalShares,
		ServiceType: serviceType,
		ServiceCost: serviceCost,
	}
	c.SetSharePrice(decimal.NewFromInt(1))

	e.companies[ticker] = c
	e.books[ticker] = book.New(ticker)
	e.priceHistory[ticker] = nil

	founder.Portfolio.Add(ticker, c.TotalShares)

	return c, nil
}

// IPO takes a private company public by posting a founder-side sell limit
// order for the offered shares. The company is PUBLIC once the order is on
// the book.
func (e *Exchange) IPO(ticker string, shares, price decimal.Decimal) error {
	ticker = strings.ToUpper(ticker)
	c, ok := e.companies[ticker]
	if !ok {
		return ErrCompanyNotFound
	}
	if c.Status != types.CompanyPrivate {
		return ErrNotPrivate
	}
	founder, ok := e.agents[c.FounderID]
	if !ok {
		return ErrAgentNotFound
	}
	if founder.Portfolio.Get(ticker).LessThan(shares) {
		return ErrFounderShares
	}

	c.Status = types.CompanyIPO
	c.SetSharePrice(price)
	c.PublicShares = shares

	ipoOrder := &types.Order{
		AgentID:  founder.ID,
		Ticker:   ticker,
		Side:     types.SELL,
		Type:     types.OrderTypeLimit,
		Quantity: shares,
		Price:    price,
	}
	if _, err := e.SubmitOrder(ipoOrder); err != nil {
		c.Status = types.CompanyPrivate
		return fmt.Errorf("posting IPO order: %w", err)
	}

	c.Status = types.CompanyPublic
	return nil
}

// Company returns the live company record for a ticker, or nil.
func (e *Exchange) Company(ticker string) *types.Company {
	return e.companies[strings.ToUpper(ticker)]
}

// Companies returns the live company records in no particular order.
func (e *Exchange) Companies() []*types.Company {
	out := make([]*types.Company, 0, len(e.companies))
	for _, c := range e.companies {
		out = append(out, c)
	}
	return out
}

// Tickers lists all known tickers.
func (e *Exchange) Tickers() []string {
	out := make([]string, 0, len(e.companies))
	for t := range e.companies {
		out = append(out, t)
	}
	return out
}

// Book returns the order book for a ticker, or nil.
func (e *Exchange) Book(ticker string) *book.Book {
	return e.books[strings.ToUpper(ticker)]
}

// Order returns an indexed order by id, or nil.
func (e *Exchange) Order(id string) *types.Order {
	return e.orders[id]
}

// Bankrupt marks a company dead: share price and market cap drop to zero,
// every holder's position is wiped, and the company's open orders are
// cancelled. Cancelled book entries are reclaimed lazily on the next
// best-of-side lookup; buy-side escrow is released here.
func (e *Exchange) Bankrupt(ticker string) {
	ticker = strings.ToUpper(ticker)
	c, ok := e.companies[ticker]
	if !ok {
		return
	}
	c.Status = types.CompanyBankrupt
	c.SetSharePrice(decimal.Zero)

	for _, a := range e.agents {
		if qty, held := a.Portfolio[ticker]; held {
			a.Portfolio.Add(ticker, qty.Neg())
		}
	}

	for _, o := range e.orders {
		if o.Ticker != ticker || !o.Open() {
			continue
		}
		o.Status = types.OrderStatusCancelled
		e.releaseEscrow(o)
	}
}

// SharePrices snapshots the current per-ticker share prices.
func (e *Exchange) SharePrices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(e.companies))
	for t, c := range e.companies {
		prices[t] = c.SharePrice
	}
	return prices
}
