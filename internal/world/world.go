// Package world owns the simulated economy: the agent and company
// registries, the clock, the daily cycle, and the append-only event log.
// Every mutation and every read goes through one mutex, so callers always
// observe a consistent world; copies, never live pointers, cross the
// boundary.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"aiverse/internal/exchange"
	"aiverse/internal/metrics"
	"aiverse/pkg/types"
)

// ErrBankrupt rejects service calls on a bankrupt company.
var ErrBankrupt = errors.New("company is bankrupt")

// Config carries the economy parameters.
type Config struct {
	TicksPerDay  int64           // ticks per simulated day
	DailyIncome  decimal.Decimal // per-agent grant, also the join balance
	DividendRate decimal.Decimal // share of revenue paid out daily
	CreationCost decimal.Decimal // charged to found a company
	TotalShares  decimal.Decimal // share supply per company
}

// DefaultConfig returns the stock economy: 1,440 ticks to a day, 1,000 ₳
// income, 10% dividends.
func DefaultConfig() Config {
	return Config{
		TicksPerDay:  1440,
		DailyIncome:  decimal.NewFromInt(1000),
		DividendRate: decimal.NewFromFloat(0.10),
		CreationCost: decimal.NewFromInt(10_000),
		TotalShares:  decimal.NewFromInt(1_000_000),
	}
}

// World is the aggregate root. All exported methods lock; the exchange
// underneath is never touched without the lock held.
type World struct {
	mu  sync.Mutex
	cfg Config
	ex  *exchange.Exchange

	tick    int64
	started time.Time

	events []types.WorldEvent
	usage  []types.ServiceUsage

	// sink receives each event after it is logged. It must not block:
	// the runtime installs a bounded-queue enqueue here.
	sink func(types.WorldEvent)

	mx     *metrics.Collector
	logger *slog.Logger
}

// New builds an empty world.
func New(cfg Config, logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	w := &World{
		cfg:     cfg,
		started: time.Now(),
		mx:      metrics.GetCollector(),
		logger:  logger.With("component", "world"),
	}
	w.ex = exchange.New(exchange.Config{
		CreationCost: cfg.CreationCost,
		TotalShares:  cfg.TotalShares,
	}, w.record)
	return w
}

// SetSink installs the event hand-off. Call before the first mutation.
func (w *World) SetSink(fn func(types.WorldEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = fn
}

// record appends to the world log and hands the event to the sink. Always
// called with the lock held; the sink must therefore never call back into
// the world.
func (w *World) record(ev types.WorldEvent) {
	w.events = append(w.events, ev)
	if w.sink != nil {
		w.sink(ev)
	}
}

// ————————————————————————————————————————————————————————————————————————
// Agent actions
// ————————————————————————————————————————————————————————————————————————

// Join registers an agent with a starting balance of one daily income.
// Rejoining returns the existing agent unchanged, but still announces the
// arrival.
func (w *World) Join(agentID, name string) types.Agent {
	w.mu.Lock()
	defer w.mu.Unlock()

	a := w.ex.RegisterAgent(agentID, name, w.cfg.DailyIncome)
	w.record(types.WorldEvent{
		Timestamp: time.Now().UTC(),
		Type:      types.EventJoin,
		AgentID:   agentID,
		Data:      map[string]any{"name": name, "balance": a.Balance},
		Message:   fmt.Sprintf("🤖 %s joined AIVERSE with %s₳", name, a.Balance),
	})
	return copyAgent(a)
}

// UseService has the agent pay a company for one service call. The fee
// moves into the company's revenue pool, to be paid back out as dividends.
func (w *World) UseService(agentID, ticker string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	a := w.ex.Agent(agentID)
	if a == nil {
		return "", exchange.ErrAgentNotFound
	}
	c := w.ex.Company(ticker)
	if c == nil {
		return "", exchange.ErrCompanyNotFound
	}
	if c.Status == types.CompanyBankrupt {
		return "", ErrBankrupt
	}

	cost := c.ServiceCost
	if a.Available().LessThan(cost) {
		return "", exchange.ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(cost)
	c.Revenue = c.Revenue.Add(cost)
	c.TotalAPICalls++
	w.mx.RecordServiceCall(c.Ticker)

	w.usage = append(w.usage, types.ServiceUsage{
		Timestamp: time.Now().UTC(),
		AgentID:   agentID,
		Ticker:    c.Ticker,
		Cost:      cost,
		Success:   true,
	})
	return fmt.Sprintf("Service used: -%s₳", cost), nil
}

// CreateCompany founds a company on the founder's coin.
func (w *World) CreateCompany(founderID, ticker, name, description, serviceType string, serviceCost decimal.Decimal) (types.Company, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.ex.CreateCompany(founderID, ticker, name, description, serviceType, serviceCost)
	if err != nil {
		return types.Company{}, err
	}

	founder := w.ex.Agent(founderID)
	w.record(types.WorldEvent{
		Timestamp: time.Now().UTC(),
		Type:      types.EventCompanyCreated,
		Ticker:    c.Ticker,
		AgentID:   founderID,
		Data:      map[string]any{"name": name, "service": serviceType},
		Message:   fmt.Sprintf("🏭 %s founded %s ($%s)", founder.Name, name, c.Ticker),
	})
	return *c, nil
}

// LaunchIPO floats part of a private company: the founder's shares go up
// as a resting ask and the company turns public.
func (w *World) LaunchIPO(ticker string, shares, price decimal.Decimal) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ex.IPO(ticker, shares, price); err != nil {
		return "", err
	}

	c := w.ex.Company(ticker)
	w.record(types.WorldEvent{
		Timestamp: time.Now().UTC(),
		Type:      types.EventIPO,
		Ticker:    c.Ticker,
		AgentID:   c.FounderID,
		Data:      map[string]any{"shares": shares, "price": price},
		Message:   fmt.Sprintf("📈 IPO: $%s - %s shares at %s₳", c.Ticker, shares, price),
	})
	return fmt.Sprintf("IPO launched: %s shares at %s₳", shares, price), nil
}

// SubmitOrder places an order for the agent and returns its settled state.
func (w *World) SubmitOrder(agentID, ticker string, side types.Side, typ types.OrderType, quantity, price decimal.Decimal) (types.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	o, err := w.ex.SubmitOrder(&types.Order{
		AgentID:  agentID,
		Ticker:   ticker,
		Side:     side,
		Type:     typ,
		Quantity: quantity,
		Price:    price,
	})
	if err != nil {
		w.mx.RecordOrderRejected(rejectionReason(err))
		return types.Order{}, err
	}
	w.mx.RecordOrder(o.Ticker, string(o.Side), string(o.Type), string(o.Status))
	return *o, nil
}

// rejectionReason maps an admission error to a bounded metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, exchange.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, exchange.ErrInsufficientHoldings):
		return "insufficient_holdings"
	case errors.Is(err, exchange.ErrAgentNotFound):
		return "unknown_agent"
	case errors.Is(err, exchange.ErrCompanyNotFound):
		return "unknown_company"
	default:
		return "other"
	}
}

// ————————————————————————————————————————————————————————————————————————
// Clock
// ————————————————————————————————————————————————————————————————————————

// Tick advances the world clock and returns the new tick. Every TicksPerDay
// ticks the daily cycle runs: income, dividends, then the bankruptcy sweep.
func (w *World) Tick() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	if w.tick%w.cfg.TicksPerDay == 0 {
		w.dailyCycle()
	}
	return w.tick
}

func (w *World) dailyCycle() {
	w.ex.GrantIncome(w.cfg.DailyIncome)

	tickers := w.ex.Tickers()
	sort.Strings(tickers)
	for _, t := range tickers {
		c := w.ex.Company(t)
		if c.Status == types.CompanyPublic && c.Revenue.IsPositive() {
			w.distributeDividends(c)
			c.Revenue = decimal.Zero
		}
		// TotalAPICalls never resets: one served call makes a company
		// immune to this sweep for good.
		if c.Status == types.CompanyPublic && c.TotalAPICalls == 0 && c.SharePrice.LessThan(decimal.NewFromFloat(0.01)) {
			w.bankrupt(c)
		}
	}

	w.logger.Info("daily cycle complete",
		"day", w.tick/w.cfg.TicksPerDay,
		"agents", len(w.ex.Agents()),
		"companies", len(w.ex.Companies()),
	)
}

func (w *World) distributeDividends(c *types.Company) {
	total := c.Revenue.Mul(w.cfg.DividendRate)
	perShare := total.Div(c.TotalShares)

	for _, a := range w.ex.Agents() {
		shares := a.Portfolio.Get(c.Ticker)
		if shares.IsPositive() {
			a.Balance = a.Balance.Add(shares.Mul(perShare))
		}
	}

	w.record(types.WorldEvent{
		Timestamp: time.Now().UTC(),
		Type:      types.EventDividend,
		Ticker:    c.Ticker,
		Data:      map[string]any{"total": total, "per_share": perShare},
		Message:   fmt.Sprintf("💰 Dividend $%s: %s₳/share", c.Ticker, perShare.StringFixed(4)),
	})
}

func (w *World) bankrupt(c *types.Company) {
	w.ex.Bankrupt(c.Ticker)

	w.record(types.WorldEvent{
		Timestamp: time.Now().UTC(),
		Type:      types.EventBankruptcy,
		Ticker:    c.Ticker,
		Message:   fmt.Sprintf("💀 BANKRUPT: $%s - %s", c.Ticker, c.Name),
	})
	w.logger.Warn("company bankrupt", "ticker", c.Ticker, "name", c.Name)
}

// CheckInvariants re-verifies the conservation laws under the lock.
func (w *World) CheckInvariants() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ex.CheckInvariants()
}
