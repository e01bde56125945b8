package exchange

import (
	"testing"

	"aiverse/pkg/types"
)

func TestMarketDataQuote(t *testing.T) {
	t.Parallel()
	e, _ := newTestExchange()
	e.RegisterAgent("a", "A", dec("100000"))
	e.RegisterAgent("b", "B", dec("100000"))
	seedCompany(e, "XYZ", "b", dec("1000"), dec("1"))

	// Two prints: 50 @ 4, then 50 @ 8.
	submit(t, e, "b", "XYZ", types.SELL, types.OrderTypeLimit, "50", "4")
	submit(t, e, "a", "XYZ", types.BUY, types.OrderTypeLimit, "50", "4")
	submit(t, e, "b", "XYZ", types.SELL, types.OrderTypeLimit, "50", "8")
	submit(t, e, "a", "XYZ", types.BUY, types.OrderTypeLimit, "50", "8")

	// Resting interest on both sides.
	submit(t, e, "a", "XYZ", types.BUY, types.OrderTypeLimit, "10", "3")
	submit(t, e, "b", "XYZ", types.SELL, types.OrderTypeLimit, "10", "9")

	md, ok := e.MarketData("xyz")
	if !ok {
		t.Fatal("quote missing")
	}
	if !md.LastPrice.Equal(dec("8")) {
		t.Fatalf("last = %s, want 8", md.LastPrice)
	}
	if !md.Bid.Equal(dec("3")) || !md.Ask.Equal(dec("9")) {
		t.Fatalf("bid/ask = %s/%s, want 3/9", md.Bid, md.Ask)
	}
	if !md.High24h.Equal(dec("8")) || !md.Low24h.Equal(dec("4")) {
		t.Fatalf("high/low = %s/%s, want 8/4", md.High24h, md.Low24h)
	}
	// (8-4)/4 * 100
	if !md.Change24h.Equal(dec("100")) {
		t.Fatalf("change = %s, want 100", md.Change24h)
	}
	// 50*4 + 50*8 notional
	if !md.Volume24h.Equal(dec("600")) {
		t.Fatalf("volume = %s, want 600", md.Volume24h)
	}
	if !md.MarketCap.Equal(dec("8000")) {
		t.Fatalf("market cap = %s, want 8000", md.MarketCap)
	}
}

func TestMarketDataUnknownTicker(t *testing.T) {
	t.Parallel()
	e, _ := newTestExchange()

	if _, ok := e.MarketData("NOPE"); ok {
		t.Fatal("unknown ticker produced a quote")
	}
}

func TestMarketDataNoHistory(t *testing.T) {
	t.Parallel()
	e, _ := newTestExchange()
	seedCompany(e, "XYZ", "", dec("1000"), dec("7"))

	md, ok := e.MarketData("XYZ")
	if !ok {
		t.Fatal("quote missing")
	}
	if !md.High24h.Equal(dec("7")) || !md.Low24h.Equal(dec("7")) {
		t.Fatalf("high/low = %s/%s, want last price 7", md.High24h, md.Low24h)
	}
	if !md.Change24h.IsZero() || !md.Volume24h.IsZero() {
		t.Fatalf("change/volume = %s/%s, want 0/0", md.Change24h, md.Volume24h)
	}
	if !md.Bid.IsZero() || !md.Ask.IsZero() {
		t.Fatalf("bid/ask = %s/%s, want empty book", md.Bid, md.Ask)
	}
}

func TestRecentTradesNewestFirst(t *testing.T) {
	t.Parallel()
	e, _ := newTestExchange()
	e.RegisterAgent("a", "A", dec("100000"))
	e.RegisterAgent("b", "B", dec("100000"))
	seedCompany(e, "XYZ", "b", dec("1000"), dec("1"))

	for _, p := range []string{"4", "5", "6"} {
		submit(t, e, "b", "XYZ", types.SELL, types.OrderTypeLimit, "10", p)
		submit(t, e, "a", "XYZ", types.BUY, types.OrderTypeLimit, "10", p)
	}

	got := e.RecentTrades("", 0)
	if len(got) != 3 {
		t.Fatalf("trades = %d, want 3", len(got))
	}
	if !got[0].Price.Equal(dec("6")) || !got[2].Price.Equal(dec("4")) {
		t.Fatalf("order = %s..%s, want newest first", got[0].Price, got[2].Price)
	}

	got = e.RecentTrades("", 2)
	if len(got) != 2 || !got[0].Price.Equal(dec("6")) {
		t.Fatalf("limited = %+v, want the latest 2", got)
	}
}

func TestRecentTradesWindowThenFilter(t *testing.T) {
	t.Parallel()
	e, _ := newTestExchange()
	e.RegisterAgent("a", "A", dec("100000"))
	e.RegisterAgent("b", "B", dec("100000"))
	seedCompany(e, "XYZ", "b", dec("1000"), dec("1"))
	seedCompany(e, "ABC", "b", dec("1000"), dec("1"))

	submit(t, e, "b", "XYZ", types.SELL, types.OrderTypeLimit, "10", "5")
	submit(t, e, "a", "XYZ", types.BUY, types.OrderTypeLimit, "10", "5")
	for i := 0; i < 2; i++ {
		submit(t, e, "b", "ABC", types.SELL, types.OrderTypeLimit, "10", "2")
		submit(t, e, "a", "ABC", types.BUY, types.OrderTypeLimit, "10", "2")
	}

	// The limit bounds the overall window first; the ticker filter only
	// sees what is left of it.
	if got := e.RecentTrades("XYZ", 2); len(got) != 0 {
		t.Fatalf("XYZ within last 2 = %d trades, want 0", len(got))
	}
	got := e.RecentTrades("XYZ", 3)
	if len(got) != 1 || got[0].Ticker != "XYZ" {
		t.Fatalf("XYZ within last 3 = %+v, want the one XYZ print", got)
	}
}
