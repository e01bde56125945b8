package world

import (
	"time"

	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

// LeaderboardEntry is one row of the state snapshot's top list.
type LeaderboardEntry struct {
	Name     string          `json:"name"`
	NetWorth decimal.Decimal `json:"net_worth"`
}

// State is the world snapshot served by /state.
type State struct {
	Tick           int64                      `json:"tick"`
	UptimeHours    float64                    `json:"uptime_hours"`
	TotalAgents    int                        `json:"total_agents"`
	TotalCompanies int                        `json:"total_companies"`
	TotalTrades    int                        `json:"total_trades"`
	MarketCaps     map[string]decimal.Decimal `json:"market_caps"`
	Leaderboard    []LeaderboardEntry         `json:"leaderboard"`
}

// Ranking is one row of the public leaderboard.
type Ranking struct {
	Rank     int             `json:"rank"`
	Name     string          `json:"name"`
	AgentID  string          `json:"id"`
	NetWorth decimal.Decimal `json:"net_worth"`
	Trades   int             `json:"trades"`
}

// State snapshots the world's headline numbers. The top-5 list here keeps
// the system agent in, unlike Leaderboard.
func (w *World) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	caps := make(map[string]decimal.Decimal)
	for _, c := range w.ex.Companies() {
		caps[c.Ticker] = c.MarketCap
	}

	top := w.ex.Leaderboard(5)
	board := make([]LeaderboardEntry, 0, len(top))
	for _, r := range top {
		board = append(board, LeaderboardEntry{Name: r.Agent.Name, NetWorth: r.NetWorth})
	}

	return State{
		Tick:           w.tick,
		UptimeHours:    time.Since(w.started).Hours(),
		TotalAgents:    len(w.ex.Agents()),
		TotalCompanies: len(w.ex.Companies()),
		TotalTrades:    w.ex.TradeCount(),
		MarketCaps:     caps,
		Leaderboard:    board,
	}
}

// Leaderboard ranks agents by net worth, hiding the system treasury and
// renumbering around it.
func (w *World) Leaderboard(limit int) []Ranking {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Ranking, 0, limit)
	for _, r := range w.ex.Leaderboard(0) {
		if r.Agent.ID == SystemAgentID {
			continue
		}
		out = append(out, Ranking{
			Rank:     len(out) + 1,
			Name:     r.Agent.Name,
			AgentID:  r.Agent.ID,
			NetWorth: r.NetWorth,
			Trades:   r.Agent.TotalTrades,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// NewsFeed returns the latest events, newest first. Limit defaults to 20.
func (w *World) NewsFeed(limit int) []types.WorldEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	if limit > len(w.events) {
		limit = len(w.events)
	}
	out := make([]types.WorldEvent, 0, limit)
	for i := len(w.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, w.events[i])
	}
	return out
}

// Agent returns a copy of one agent.
func (w *World) Agent(id string) (types.Agent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	a := w.ex.Agent(id)
	if a == nil {
		return types.Agent{}, false
	}
	return copyAgent(a), true
}

// Agents returns copies of every agent, the system treasury included;
// callers that hide it filter afterwards.
func (w *World) Agents() []types.Agent {
	w.mu.Lock()
	defer w.mu.Unlock()

	live := w.ex.Agents()
	out := make([]types.Agent, 0, len(live))
	for _, a := range live {
		out = append(out, copyAgent(a))
	}
	return out
}

// Company returns a copy of one company.
func (w *World) Company(ticker string) (types.Company, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := w.ex.Company(ticker)
	if c == nil {
		return types.Company{}, false
	}
	return *c, true
}

// Companies returns copies of every company.
func (w *World) Companies() []types.Company {
	w.mu.Lock()
	defer w.mu.Unlock()

	live := w.ex.Companies()
	out := make([]types.Company, 0, len(live))
	for _, c := range live {
		out = append(out, *c)
	}
	return out
}

// MarketData computes the quote for a ticker.
func (w *World) MarketData(ticker string) (types.MarketData, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ex.MarketData(ticker)
}

// RecentTrades returns the latest trades, newest first, optionally
// filtered by ticker.
func (w *World) RecentTrades(ticker string, limit int) []types.Trade {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ex.RecentTrades(ticker, limit)
}

// TradeCount reports the number of settled trades.
func (w *World) TradeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ex.TradeCount()
}

// Usage returns a copy of the service usage log.
func (w *World) Usage() []types.ServiceUsage {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]types.ServiceUsage, len(w.usage))
	copy(out, w.usage)
	return out
}

func copyAgent(a *types.Agent) types.Agent {
	c := *a
	c.Portfolio = a.Portfolio.Clone()
	return c
}
