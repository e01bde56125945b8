package exchange

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

// marketWindow is the lookback for the derived 24h quote statistics.
const marketWindow = 24 * time.Hour

// MarketData derives the quote for a ticker from live state: last price,
// top of book, and 24h high/low/change/volume. ok is false for an unknown
// ticker.
func (e *Exchange) MarketData(ticker string) (types.MarketData, bool) {
	ticker = strings.ToUpper(ticker)
	c, ok := e.companies[ticker]
	if !ok {
		return types.MarketData{}, false
	}

	md := types.MarketData{
		Ticker:    ticker,
		LastPrice: c.SharePrice,
		MarketCap: c.MarketCap,
	}

	if bk := e.books[ticker]; bk != nil {
		if bid := bk.BestBid(); bid != nil {
			md.Bid = bid.Price
		}
		if ask := bk.BestAsk(); ask != nil {
			md.Ask = ask.Price
		}
	}

	cutoff := time.Now().Add(-marketWindow)

	var window []types.PricePoint
	for _, p := range e.priceHistory[ticker] {
		if p.Timestamp.After(cutoff) {
			window = append(window, p)
		}
	}

	if len(window) > 0 {
		md.High24h = window[0].Price
		md.Low24h = window[0].Price
		for _, p := range window[1:] {
			if p.Price.GreaterThan(md.High24h) {
				md.High24h = p.Price
			}
			if p.Price.LessThan(md.Low24h) {
				md.Low24h = p.Price
			}
		}
		if first := window[0].Price; !first.IsZero() {
			md.Change24h = c.SharePrice.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
		}
	} else {
		md.High24h = c.SharePrice
		md.Low24h = c.SharePrice
	}

	for _, t := range e.trades {
		if t.Ticker == ticker && t.Timestamp.After(cutoff) {
			md.Volume24h = md.Volume24h.Add(t.Quantity.Mul(t.Price))
		}
	}

	return md, true
}

// RecentTrades returns copies of the most recent trades, newest first. The
// window is the last limit trades overall; the ticker filter applies within
// that window.
func (e *Exchange) RecentTrades(ticker string, limit int) []types.Trade {
	if limit <= 0 {
		limit = 50
	}
	recent := e.trades
	if len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}

	ticker = strings.ToUpper(ticker)
	out := make([]types.Trade, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		t := recent[i]
		if ticker != "" && t.Ticker != ticker {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// TradeCount returns the total number of settled trades.
func (e *Exchange) TradeCount() int {
	return len(e.trades)
}

// Ranking pairs an agent with its net worth at current share prices.
type Ranking struct {
	Agent    *types.Agent
	NetWorth decimal.Decimal
}

// Leaderboard ranks all agents by net worth, best first. The system agent
// is included; callers that hide it filter afterwards.
func (e *Exchange) Leaderboard(limit int) []Ranking {
	prices := e.SharePrices()

	rankings := make([]Ranking, 0, len(e.agents))
	for _, a := range e.agents {
		rankings = append(rankings, Ranking{Agent: a, NetWorth: a.NetWorth(prices)})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		if !rankings[i].NetWorth.Equal(rankings[j].NetWorth) {
			return rankings[i].NetWorth.GreaterThan(rankings[j].NetWorth)
		}
		return rankings[i].Agent.ID < rankings[j].Agent.ID
	})

	if limit > 0 && len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings
}
