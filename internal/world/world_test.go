package world

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TicksPerDay = 1 // every tick is a day
	return cfg
}

func newTestWorld() *World {
	return New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestJoinGrantsStartingBalance(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	a := w.Join("alice", "Alice")
	if !a.Balance.Equal(dec("1000")) {
		t.Fatalf("starting balance = %s, want 1000", a.Balance)
	}
	if a.ID != "alice" || a.Name != "Alice" {
		t.Fatalf("agent = %s/%s, want alice/Alice", a.ID, a.Name)
	}
}

func TestJoinIdempotent(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("alice", "Alice")
	w.ex.Agent("alice").Balance = dec("42")

	again := w.Join("alice", "Alice")
	if !again.Balance.Equal(dec("42")) {
		t.Fatalf("rejoin balance = %s, want 42 (no re-grant)", again.Balance)
	}

	// The arrival is still announced both times.
	feed := w.NewsFeed(0)
	if len(feed) != 2 {
		t.Fatalf("events = %d, want 2", len(feed))
	}
	for _, ev := range feed {
		if ev.Type != types.EventJoin {
			t.Fatalf("event type = %s, want join", ev.Type)
		}
	}
}

func TestUseService(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("20000")
	if _, err := w.CreateCompany("founder", "svc", "ServiceCo", "d", "testing", dec("5")); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	w.Join("alice", "Alice")

	msg, err := w.UseService("alice", "SVC")
	if err != nil {
		t.Fatalf("UseService: %v", err)
	}
	if msg != "Service used: -5₳" {
		t.Fatalf("message = %q", msg)
	}

	alice, _ := w.Agent("alice")
	if !alice.Balance.Equal(dec("995")) {
		t.Fatalf("alice balance = %s, want 995", alice.Balance)
	}
	c, _ := w.Company("SVC")
	if !c.Revenue.Equal(dec("5")) || c.TotalAPICalls != 1 {
		t.Fatalf("company revenue/calls = %s/%d, want 5/1", c.Revenue, c.TotalAPICalls)
	}

	usage := w.Usage()
	if len(usage) != 1 || usage[0].AgentID != "alice" || usage[0].Ticker != "SVC" {
		t.Fatalf("usage log = %+v", usage)
	}
}

func TestUseServiceRejections(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("20000")
	if _, err := w.CreateCompany("founder", "svc", "ServiceCo", "d", "testing", dec("5000")); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	w.Join("alice", "Alice")

	if _, err := w.UseService("ghost", "SVC"); err == nil {
		t.Fatal("unknown agent accepted")
	}
	if _, err := w.UseService("alice", "NOPE"); err == nil {
		t.Fatal("unknown company accepted")
	}
	if _, err := w.UseService("alice", "SVC"); err == nil {
		t.Fatal("unaffordable service accepted")
	}

	w.ex.Bankrupt("SVC")
	w.ex.Agent("alice").Balance = dec("10000")
	if _, err := w.UseService("alice", "SVC"); !errors.Is(err, ErrBankrupt) {
		t.Fatalf("bankrupt company: err = %v, want ErrBankrupt", err)
	}
}

func TestCreateCompanyEmitsEvent(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("15000")

	c, err := w.CreateCompany("founder", "new", "NewCo", "desc", "testing", dec("2"))
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	if c.Ticker != "NEW" {
		t.Fatalf("ticker = %s, want NEW", c.Ticker)
	}

	founder, _ := w.Agent("founder")
	if !founder.Balance.Equal(dec("5000")) {
		t.Fatalf("founder balance = %s, want 5000 after creation charge", founder.Balance)
	}

	ev := w.NewsFeed(1)[0]
	if ev.Type != types.EventCompanyCreated || ev.Ticker != "NEW" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestLaunchIPO(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("15000")
	if _, err := w.CreateCompany("founder", "new", "NewCo", "d", "testing", dec("2")); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	msg, err := w.LaunchIPO("new", dec("300000"), dec("10"))
	if err != nil {
		t.Fatalf("LaunchIPO: %v", err)
	}
	if msg != "IPO launched: 300000 shares at 10₳" {
		t.Fatalf("message = %q", msg)
	}

	c, _ := w.Company("NEW")
	if c.Status != types.CompanyPublic {
		t.Fatalf("status = %s, want public", c.Status)
	}
	if !c.SharePrice.Equal(dec("10")) {
		t.Fatalf("share price = %s, want 10", c.SharePrice)
	}

	md, _ := w.MarketData("NEW")
	if !md.Ask.Equal(dec("10")) {
		t.Fatalf("ask = %s, want 10 (IPO shares resting)", md.Ask)
	}

	// Founder keeps the shares until they sell.
	founder, _ := w.Agent("founder")
	if !founder.Portfolio.Get("NEW").Equal(dec("1000000")) {
		t.Fatalf("founder holdings = %s, want 1000000", founder.Portfolio.Get("NEW"))
	}

	ev := w.NewsFeed(1)[0]
	if ev.Type != types.EventIPO || ev.Ticker != "NEW" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestSubmitOrderCrosses(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("15000")
	if _, err := w.CreateCompany("founder", "xyz", "XyzCo", "d", "testing", dec("1")); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	w.Join("alice", "Alice")

	if _, err := w.SubmitOrder("founder", "xyz", types.SELL, types.OrderTypeLimit, dec("100"), dec("5")); err != nil {
		t.Fatalf("sell: %v", err)
	}
	o, err := w.SubmitOrder("alice", "XYZ", types.BUY, types.OrderTypeLimit, dec("100"), dec("5"))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if o.Status != types.OrderStatusFilled {
		t.Fatalf("status = %s, want filled", o.Status)
	}

	alice, _ := w.Agent("alice")
	if !alice.Balance.Equal(dec("500")) {
		t.Fatalf("alice balance = %s, want 500", alice.Balance)
	}
	if !alice.Portfolio.Get("XYZ").Equal(dec("100")) {
		t.Fatalf("alice holdings = %s, want 100", alice.Portfolio.Get("XYZ"))
	}
	if w.TradeCount() != 1 {
		t.Fatalf("trades = %d, want 1", w.TradeCount())
	}
}

func TestDailyIncome(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.TicksPerDay = 3
	w := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w.Join("alice", "Alice")
	w.Tick()
	w.Tick()
	a, _ := w.Agent("alice")
	if !a.Balance.Equal(dec("1000")) {
		t.Fatalf("balance before day end = %s, want 1000", a.Balance)
	}

	if got := w.Tick(); got != 3 { // third tick closes the day
		t.Fatalf("tick = %d, want 3", got)
	}
	a, _ = w.Agent("alice")
	if !a.Balance.Equal(dec("2000")) {
		t.Fatalf("balance after day end = %s, want 2000", a.Balance)
	}
}

func TestDailyDividends(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("20000")
	if _, err := w.CreateCompany("founder", "c", "CompanyC", "d", "testing", dec("1")); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	w.Join("x", "X")
	w.Join("y", "Y")

	// Rig the holdings and revenue directly: X holds 100, Y holds 900,
	// one day of revenue waiting.
	c := w.ex.Company("C")
	c.Status = types.CompanyPublic
	c.Revenue = dec("1000")
	w.ex.Agent("founder").Portfolio.Add("C", dec("-1000"))
	w.ex.Agent("x").Portfolio.Add("C", dec("100"))
	w.ex.Agent("y").Portfolio.Add("C", dec("900"))

	w.Tick()

	// per_share = 1000 * 0.1 / 1,000,000 = 0.0001; income lands first.
	x, _ := w.Agent("x")
	if !x.Balance.Equal(dec("2000.01")) {
		t.Fatalf("x balance = %s, want 2000.01", x.Balance)
	}
	y, _ := w.Agent("y")
	if !y.Balance.Equal(dec("2000.09")) {
		t.Fatalf("y balance = %s, want 2000.09", y.Balance)
	}

	got, _ := w.Company("C")
	if !got.Revenue.IsZero() {
		t.Fatalf("revenue = %s, want 0 after payout", got.Revenue)
	}

	ev := w.NewsFeed(1)[0]
	if ev.Type != types.EventDividend || ev.Ticker != "C" {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.Data["per_share"].(decimal.Decimal).Equal(dec("0.0001")) {
		t.Fatalf("per_share = %v, want 0.0001", ev.Data["per_share"])
	}
}

func TestBankruptcySweep(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("20000")
	if _, err := w.CreateCompany("founder", "dead", "DeadCo", "d", "testing", dec("1")); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	c := w.ex.Company("DEAD")
	c.Status = types.CompanyPublic
	c.SetSharePrice(dec("0.005"))

	w.Tick()

	got, _ := w.Company("DEAD")
	if got.Status != types.CompanyBankrupt {
		t.Fatalf("status = %s, want bankrupt", got.Status)
	}
	if !got.SharePrice.IsZero() || !got.MarketCap.IsZero() {
		t.Fatalf("price/cap = %s/%s, want 0/0", got.SharePrice, got.MarketCap)
	}
	founder, _ := w.Agent("founder")
	if !founder.Portfolio.Get("DEAD").IsZero() {
		t.Fatalf("holdings survived bankruptcy: %s", founder.Portfolio.Get("DEAD"))
	}

	ev := w.NewsFeed(1)[0]
	if ev.Type != types.EventBankruptcy || ev.Ticker != "DEAD" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestServedCompanyNeverGoesBankrupt(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("founder", "Founder")
	w.ex.Agent("founder").Balance = dec("20000")
	if _, err := w.CreateCompany("founder", "live", "LiveCo", "d", "testing", dec("1")); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	c := w.ex.Company("LIVE")
	c.Status = types.CompanyPublic
	c.SetSharePrice(dec("0.001"))
	c.TotalAPICalls = 1

	w.Tick()

	got, _ := w.Company("LIVE")
	if got.Status != types.CompanyPublic {
		t.Fatalf("status = %s, want public (one call makes it immortal)", got.Status)
	}
}

func TestState(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("alice", "Alice")
	w.Join("bob", "Bob")

	st := w.State()
	if st.TotalAgents != 2 {
		t.Fatalf("agents = %d, want 2", st.TotalAgents)
	}
	if st.TotalCompanies != 0 || st.TotalTrades != 0 {
		t.Fatalf("companies/trades = %d/%d, want 0/0", st.TotalCompanies, st.TotalTrades)
	}
	if len(st.Leaderboard) != 2 {
		t.Fatalf("leaderboard rows = %d, want 2", len(st.Leaderboard))
	}
	if st.UptimeHours < 0 {
		t.Fatalf("uptime = %f", st.UptimeHours)
	}
}

func TestLeaderboardHidesSystem(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join(SystemAgentID, "AIVERSE System")
	w.ex.Agent(SystemAgentID).Balance = dec("1000000000")
	w.Join("alice", "Alice")
	w.Join("bob", "Bob")
	w.ex.Agent("bob").Balance = dec("5000")

	board := w.Leaderboard(10)
	if len(board) != 2 {
		t.Fatalf("rows = %d, want 2 (system hidden)", len(board))
	}
	if board[0].AgentID != "bob" || board[0].Rank != 1 {
		t.Fatalf("top row = %+v, want bob at rank 1", board[0])
	}
	if board[1].AgentID != "alice" || board[1].Rank != 2 {
		t.Fatalf("second row = %+v, want alice at rank 2", board[1])
	}

	// State's top list keeps the treasury in.
	st := w.State()
	if st.Leaderboard[0].Name != "AIVERSE System" {
		t.Fatalf("state leaderboard top = %+v, want the system agent", st.Leaderboard[0])
	}
}

func TestNewsFeedNewestFirst(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	for i := 0; i < 25; i++ {
		w.Join("alice", "Alice")
	}

	feed := w.NewsFeed(0)
	if len(feed) != 20 {
		t.Fatalf("default feed length = %d, want 20", len(feed))
	}
	feed = w.NewsFeed(3)
	if len(feed) != 3 {
		t.Fatalf("feed length = %d, want 3", len(feed))
	}
	for i := 1; i < len(feed); i++ {
		if feed[i].Timestamp.After(feed[i-1].Timestamp) {
			t.Fatal("feed is not newest first")
		}
	}
}

func TestSinkReceivesEvents(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	var got []types.WorldEvent
	w.SetSink(func(ev types.WorldEvent) { got = append(got, ev) })

	w.Join("alice", "Alice")
	if len(got) != 1 || got[0].Type != types.EventJoin {
		t.Fatalf("sink saw %+v", got)
	}
}

func TestBootstrap(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	if err := w.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	system, ok := w.Agent(SystemAgentID)
	if !ok {
		t.Fatal("system agent missing")
	}
	// 1B set after join, minus five creation charges.
	if !system.Balance.Equal(dec("999950000")) {
		t.Fatalf("system balance = %s, want 999950000", system.Balance)
	}

	companies := w.Companies()
	if len(companies) != 5 {
		t.Fatalf("companies = %d, want 5", len(companies))
	}
	for _, c := range companies {
		if c.Status != types.CompanyPublic {
			t.Fatalf("%s status = %s, want public", c.Ticker, c.Status)
		}
	}

	// IPO price is ten times the service cost.
	md, ok := w.MarketData("CTX")
	if !ok {
		t.Fatal("CTX missing")
	}
	if !md.Ask.Equal(dec("50")) {
		t.Fatalf("CTX ask = %s, want 50", md.Ask)
	}

	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("invariants after bootstrap: %v", err)
	}
}

func TestCheckInvariantsCatchesCorruption(t *testing.T) {
	t.Parallel()
	w := newTestWorld()

	w.Join("alice", "Alice")
	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("clean world: %v", err)
	}

	w.ex.Agent("alice").Balance = dec("-1")
	if err := w.CheckInvariants(); err == nil {
		t.Fatal("negative balance not caught")
	}
}
