// Package bots runs the autonomous traders that keep the market alive.
//
// Seven traders with fixed personalities join the world at startup and act
// on a shared schedule. Each round a trader rolls against its aggression
// before doing anything, then applies its strategy to the public companies:
//
//   - momentum:   buy tickers that rose more than 2% since the last look,
//     sell holdings that fell more than 2%
//   - contrarian: the mirror image, buy dips and sell rips
//   - value:      buy below 10x service cost, sell above 20x
//   - random:     coin-flip trading, the baseline the others beat
//
// After trading, a round has a 30% chance of consuming a random company's
// service, which is what ultimately feeds revenue and dividends.
package bots

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"aiverse/internal/world"
	"aiverse/pkg/types"
)

// Strategy names a trading personality.
type Strategy string

const (
	StrategyMomentum   Strategy = "momentum"
	StrategyValue      Strategy = "value"
	StrategyRandom     Strategy = "random"
	StrategyContrarian Strategy = "contrarian"
)

// Profile describes one trader. Aggression is the per-round probability of
// acting at all, in [0, 1].
type Profile struct {
	ID         string
	Name       string
	Strategy   Strategy
	Aggression float64
}

// Profiles is the fixed roster.
var Profiles = []Profile{
	{ID: "bot_alpha", Name: "AlphaTrader", Strategy: StrategyMomentum, Aggression: 0.8},
	{ID: "bot_beta", Name: "ValueBot", Strategy: StrategyValue, Aggression: 0.5},
	{ID: "bot_gamma", Name: "RandomRandy", Strategy: StrategyRandom, Aggression: 0.6},
	{ID: "bot_delta", Name: "ContraCarl", Strategy: StrategyContrarian, Aggression: 0.7},
	{ID: "bot_theta", Name: "ThetaGang", Strategy: StrategyMomentum, Aggression: 0.4},
	{ID: "bot_omega", Name: "OmegaMind", Strategy: StrategyValue, Aggression: 0.9},
	{ID: "bot_sigma", Name: "SigmaGrind", Strategy: StrategyRandom, Aggression: 0.5},
}

var (
	riseThreshold = decimal.NewFromFloat(0.02)
	dropThreshold = riseThreshold.Neg()
)

// Trader is one autonomous participant. It only touches the world through
// its public operations, exactly like an external client would.
type Trader struct {
	id         string
	name       string
	strategy   Strategy
	aggression float64

	world *world.World
	rng   *rand.Rand

	// lastPrices remembers each ticker's price from the previous look so
	// momentum and contrarian can measure change.
	lastPrices map[string]decimal.Decimal

	logger *slog.Logger
}

func newTrader(w *world.World, p Profile, seed int64, logger *slog.Logger) *Trader {
	return &Trader{
		id:         p.ID,
		name:       p.Name,
		strategy:   p.Strategy,
		aggression: p.Aggression,
		world:      w,
		rng:        rand.New(rand.NewSource(seed)),
		lastPrices: make(map[string]decimal.Decimal),
		logger:     logger.With("bot", p.ID),
	}
}

// round runs one decision cycle for this trader.
func (t *Trader) round() {
	if t.rng.Float64() > t.aggression {
		return
	}

	agent, ok := t.world.Agent(t.id)
	if !ok {
		return
	}
	companies := tradeable(t.world.Companies())
	if len(companies) == 0 {
		return
	}

	switch t.strategy {
	case StrategyMomentum:
		t.momentum(agent, companies)
	case StrategyValue:
		t.value(agent, companies)
	case StrategyContrarian:
		t.contrarian(agent, companies)
	default:
		t.random(agent, companies)
	}

	// Consuming services is what gives companies revenue to pay out.
	if t.rng.Float64() < 0.3 {
		c := companies[t.rng.Intn(len(companies))]
		if _, err := t.world.UseService(t.id, c.Ticker); err != nil {
			t.logger.Debug("service call failed", "ticker", c.Ticker, "error", err)
		}
	}
}

// momentum buys tickers on the way up and dumps holdings on the way down.
func (t *Trader) momentum(agent types.Agent, companies []types.Company) {
	for _, c := range companies {
		change := t.priceChange(c)

		switch {
		case change.GreaterThan(riseThreshold) && agent.Available().GreaterThan(c.SharePrice.Mul(decimal.NewFromInt(5))):
			qty := t.intBetween(1, 5)
			t.submit(c.Ticker, types.BUY, qty, c.SharePrice.Mul(decimal.NewFromFloat(1.01)))
		case change.LessThan(dropThreshold) && agent.Portfolio.Get(c.Ticker).IsPositive():
			qty := capQty(t.intBetween(1, 3), agent.Portfolio.Get(c.Ticker))
			t.submit(c.Ticker, types.SELL, qty, c.SharePrice.Mul(decimal.NewFromFloat(0.99)))
		}
	}
}

// contrarian inverts momentum: it buys the dip and sells the rip.
func (t *Trader) contrarian(agent types.Agent, companies []types.Company) {
	for _, c := range companies {
		change := t.priceChange(c)

		switch {
		case change.LessThan(dropThreshold) && agent.Available().GreaterThan(c.SharePrice.Mul(decimal.NewFromInt(5))):
			qty := t.intBetween(2, 8)
			t.submit(c.Ticker, types.BUY, qty, c.SharePrice.Mul(decimal.NewFromFloat(1.01)))
		case change.GreaterThan(riseThreshold) && agent.Portfolio.Get(c.Ticker).IsPositive():
			qty := capQty(t.intBetween(1, 4), agent.Portfolio.Get(c.Ticker))
			t.submit(c.Ticker, types.SELL, qty, c.SharePrice.Mul(decimal.NewFromFloat(0.99)))
		}
	}
}

// value anchors on service cost: IPOs price at 10x cost, so below that is
// cheap and above twice that is rich.
func (t *Trader) value(agent types.Agent, companies []types.Company) {
	for _, c := range companies {
		cheap := c.ServiceCost.Mul(decimal.NewFromInt(10))
		rich := c.ServiceCost.Mul(decimal.NewFromInt(20))

		switch {
		case c.SharePrice.LessThan(cheap) && agent.Available().GreaterThan(c.SharePrice.Mul(decimal.NewFromInt(10))):
			qty := t.intBetween(5, 15)
			t.submit(c.Ticker, types.BUY, qty, c.SharePrice.Mul(decimal.NewFromFloat(1.02)))
		case c.SharePrice.GreaterThan(rich) && agent.Portfolio.Get(c.Ticker).IsPositive():
			qty := capQty(t.intBetween(1, 5), agent.Portfolio.Get(c.Ticker))
			t.submit(c.Ticker, types.SELL, qty, c.SharePrice.Mul(decimal.NewFromFloat(0.98)))
		}
	}
}

// random is the baseline: pick a company, roll buy/sell/hold/hold, trade
// near the last price.
func (t *Trader) random(agent types.Agent, companies []types.Company) {
	c := companies[t.rng.Intn(len(companies))]

	switch t.rng.Intn(4) {
	case 0:
		if agent.Available().GreaterThan(c.SharePrice.Mul(decimal.NewFromInt(5))) {
			qty := t.intBetween(1, 10)
			t.submit(c.Ticker, types.BUY, qty, c.SharePrice.Mul(t.jitter()))
		}
	case 1:
		if agent.Portfolio.Get(c.Ticker).IsPositive() {
			qty := capQty(t.intBetween(1, 5), agent.Portfolio.Get(c.Ticker))
			t.submit(c.Ticker, types.SELL, qty, c.SharePrice.Mul(t.jitter()))
		}
	}
}

// priceChange returns the fractional move since this trader last looked at
// the ticker and updates its memory. First sighting counts as no move.
func (t *Trader) priceChange(c types.Company) decimal.Decimal {
	last, seen := t.lastPrices[c.Ticker]
	t.lastPrices[c.Ticker] = c.SharePrice
	if !seen || !last.IsPositive() {
		return decimal.Zero
	}
	return c.SharePrice.Sub(last).Div(last)
}

func (t *Trader) submit(ticker string, side types.Side, qty int, price decimal.Decimal) {
	price = price.Round(2)
	if qty <= 0 || !price.IsPositive() {
		return
	}

	order, err := t.world.SubmitOrder(t.id, ticker, side, types.OrderTypeLimit, decimal.NewFromInt(int64(qty)), price)
	if err != nil {
		t.logger.Debug("order rejected", "ticker", ticker, "side", side, "error", err)
		return
	}
	if order.FilledQuantity.IsPositive() {
		t.logger.Info("filled",
			"side", side,
			"qty", order.FilledQuantity,
			"ticker", ticker,
			"price", price,
		)
	}
}

// intBetween returns a random int in [lo, hi].
func (t *Trader) intBetween(lo, hi int) int {
	return lo + t.rng.Intn(hi-lo+1)
}

// jitter returns a multiplier in [0.98, 1.02).
func (t *Trader) jitter() decimal.Decimal {
	return decimal.NewFromFloat(0.98 + t.rng.Float64()*0.04)
}

// capQty limits a sell to what the trader actually holds.
func capQty(qty int, held decimal.Decimal) int {
	if int64(qty) > held.IntPart() {
		return int(held.IntPart())
	}
	return qty
}

// tradeable filters to public companies, sorted so seeded traders behave
// reproducibly.
func tradeable(companies []types.Company) []types.Company {
	out := companies[:0]
	for _, c := range companies {
		if c.Status == types.CompanyPublic && c.SharePrice.IsPositive() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Manager owns the roster and its schedule.
type Manager struct {
	world  *world.World
	bots   []*Trader
	logger *slog.Logger
}

// NewManager builds the full roster against the given world.
func NewManager(w *world.World, logger *slog.Logger) *Manager {
	m := &Manager{
		world:  w,
		logger: logger.With("component", "bots"),
	}
	seed := time.Now().UnixNano()
	for i, p := range Profiles {
		m.bots = append(m.bots, newTrader(w, p, seed+int64(i), m.logger))
	}
	return m
}

// Join registers every bot as a world agent.
func (m *Manager) Join() {
	for _, b := range m.bots {
		m.world.Join(b.id, b.name)
	}
	m.logger.Info("bots joined", "count", len(m.bots))
}

// Run drives rounds until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("bot manager started", "bots", len(m.bots), "interval", interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("bot manager stopped")
			return
		case <-ticker.C:
			m.Round()
		}
	}
}

// Round runs one decision cycle for every bot.
func (m *Manager) Round() {
	for _, b := range m.bots {
		b.round()
	}
}
