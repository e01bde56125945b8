package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"aiverse/internal/config"
	"aiverse/internal/world"
	"aiverse/pkg/types"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// newTestServer builds a server around a world with a rich join grant and
// cheap company creation, so tests fund agents through the API alone.
func newTestServer(t *testing.T) (*Server, *world.World) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wc := world.DefaultConfig()
	wc.DailyIncome = dec(100000)
	wc.CreationCost = dec(100)
	wc.TotalShares = dec(1000)
	w := world.New(wc, discard())
	return NewServer(*cfg, w, discard()), w
}

// newSeededServer builds a server around a bootstrapped stock world.
func newSeededServer(t *testing.T) (*Server, *world.World) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	w := world.New(world.DefaultConfig(), discard())
	if err := w.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return NewServer(*cfg, w, discard()), w
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func parse(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestJoinAndFetchAgent(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/agents/join", map[string]any{"agent_id": "alice", "name": "Alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, body %s", rec.Code, rec.Body.String())
	}
	var joined agentView
	parse(t, rec, &joined)
	if joined.ID != "alice" || !joined.Balance.Equal(dec(100000)) {
		t.Fatalf("joined = %+v", joined)
	}

	rec = do(t, s, http.MethodGet, "/agents/alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got agentView
	parse(t, rec, &got)
	if got.Name != "Alice" {
		t.Fatalf("name = %q, want Alice", got.Name)
	}

	if rec := do(t, s, http.MethodGet, "/agents/ghost", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing agent status = %d, want 404", rec.Code)
	}
}

func TestJoinValidation(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodPost, "/agents/join", map[string]any{"name": "NoID"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing agent_id status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/agents/join", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestCompanyLifecycle(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/agents/join", map[string]any{"agent_id": "founder", "name": "Founder"})

	rec := do(t, s, http.MethodPost, "/companies/create", map[string]any{
		"founder_id":   "founder",
		"ticker":       "nova",
		"name":         "Nova Compute",
		"description":  "Burst compute for agents",
		"service_type": "inference",
		"service_cost": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var c companyView
	parse(t, rec, &c)
	if c.Ticker != "NOVA" || c.Status != types.CompanyPrivate {
		t.Fatalf("company = %+v", c)
	}

	// Path tickers are case-insensitive.
	if rec := do(t, s, http.MethodGet, "/companies/nova", nil); rec.Code != http.StatusOK {
		t.Fatalf("lowercase lookup status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/companies", nil)
	var list []companyView
	parse(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("companies = %d, want 1", len(list))
	}

	rec = do(t, s, http.MethodPost, "/companies/nova/ipo", map[string]any{"shares": 300, "price": 20})
	if rec.Code != http.StatusOK {
		t.Fatalf("ipo status = %d, body %s", rec.Code, rec.Body.String())
	}
	var action actionResponse
	parse(t, rec, &action)
	if !action.Success {
		t.Fatalf("ipo response = %+v", action)
	}

	rec = do(t, s, http.MethodGet, "/market/nova", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("market status = %d", rec.Code)
	}
	var md types.MarketData
	parse(t, rec, &md)
	if !md.Ask.Equal(dec(20)) {
		t.Fatalf("ask = %s, want 20", md.Ask)
	}

	// A public company cannot float again.
	if rec := do(t, s, http.MethodPost, "/companies/nova/ipo", map[string]any{"shares": 100, "price": 25}); rec.Code != http.StatusBadRequest {
		t.Fatalf("re-ipo status = %d, want 400", rec.Code)
	}

	if rec := do(t, s, http.MethodGet, "/companies/none", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown company status = %d, want 404", rec.Code)
	}
}

func TestOrderFlow(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/agents/join", map[string]any{"agent_id": "founder", "name": "Founder"})
	do(t, s, http.MethodPost, "/agents/join", map[string]any{"agent_id": "buyer", "name": "Buyer"})
	do(t, s, http.MethodPost, "/companies/create", map[string]any{
		"founder_id": "founder", "ticker": "NOVA", "name": "Nova", "description": "d",
		"service_type": "inference", "service_cost": 2,
	})
	do(t, s, http.MethodPost, "/companies/NOVA/ipo", map[string]any{"shares": 300, "price": 10})

	rec := do(t, s, http.MethodPost, "/orders", map[string]any{
		"agent_id": "buyer", "ticker": "nova", "side": "buy",
		"order_type": "limit", "quantity": 40, "price": 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("order status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res orderResult
	parse(t, rec, &res)
	if res.Status != types.OrderStatusFilled || !res.FilledQuantity.Equal(dec(40)) || !res.FilledPrice.Equal(dec(10)) {
		t.Fatalf("result = %+v", res)
	}

	rec = do(t, s, http.MethodGet, "/trades?ticker=NOVA", nil)
	var trades []tradeView
	parse(t, rec, &trades)
	if len(trades) != 1 || trades[0].Buyer != "buyer" || trades[0].Seller != "founder" {
		t.Fatalf("trades = %+v", trades)
	}

	// Admission failures share one message.
	rec = do(t, s, http.MethodPost, "/orders", map[string]any{
		"agent_id": "buyer", "ticker": "NOVA", "side": "buy",
		"quantity": 1000000, "price": 10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("overdraft status = %d, want 400", rec.Code)
	}
	var rejected errorResponse
	parse(t, rec, &rejected)
	if rejected.Error != "Order rejected (insufficient balance/holdings)" {
		t.Fatalf("error = %q", rejected.Error)
	}

	rec = do(t, s, http.MethodPost, "/orders", map[string]any{
		"agent_id": "buyer", "ticker": "NOVA", "side": "sell",
		"quantity": 100, "price": 10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversell status = %d, want 400", rec.Code)
	}
	parse(t, rec, &rejected)
	if rejected.Error != "Order rejected (insufficient balance/holdings)" {
		t.Fatalf("error = %q", rejected.Error)
	}

	// A market sell into an empty bid book cancels but still returns 200.
	rec = do(t, s, http.MethodPost, "/orders", map[string]any{
		"agent_id": "buyer", "ticker": "NOVA", "side": "sell",
		"order_type": "market", "quantity": 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("market order status = %d, body %s", rec.Code, rec.Body.String())
	}
	parse(t, rec, &res)
	if res.Status != types.OrderStatusCancelled || !res.FilledQuantity.IsZero() {
		t.Fatalf("market result = %+v", res)
	}

	if rec := do(t, s, http.MethodPost, "/orders", map[string]any{
		"agent_id": "buyer", "ticker": "NOVA", "side": "hold", "quantity": 1, "price": 1,
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad side status = %d, want 400", rec.Code)
	}

	if rec := do(t, s, http.MethodPost, "/orders", map[string]any{
		"agent_id": "buyer", "ticker": "NOVA", "side": "buy", "quantity": 0, "price": 1,
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero quantity status = %d, want 400", rec.Code)
	}
}

func TestSystemAgentHidden(t *testing.T) {
	t.Parallel()
	s, _ := newSeededServer(t)

	do(t, s, http.MethodPost, "/agents/join", map[string]any{"agent_id": "zed", "name": "Zed"})

	rec := do(t, s, http.MethodGet, "/agents", nil)
	var agents []agentSummary
	parse(t, rec, &agents)
	for _, a := range agents {
		if a.ID == world.SystemAgentID {
			t.Fatalf("system agent leaked into /agents")
		}
	}
	if len(agents) != 1 || agents[0].ID != "zed" {
		t.Fatalf("agents = %+v", agents)
	}

	rec = do(t, s, http.MethodGet, "/leaderboard", nil)
	var board []world.Ranking
	parse(t, rec, &board)
	if len(board) != 1 || board[0].AgentID != "zed" || board[0].Rank != 1 {
		t.Fatalf("leaderboard = %+v", board)
	}

	// The raw state snapshot keeps the treasury on top.
	rec = do(t, s, http.MethodGet, "/state", nil)
	var st world.State
	parse(t, rec, &st)
	if len(st.Leaderboard) == 0 || st.Leaderboard[0].Name != "AIVERSE System" {
		t.Fatalf("state leaderboard = %+v", st.Leaderboard)
	}
}

func TestNewsAndInfo(t *testing.T) {
	t.Parallel()
	s, _ := newSeededServer(t)

	rec := do(t, s, http.MethodGet, "/news?limit=5", nil)
	var items []newsItem
	parse(t, rec, &items)
	if len(items) != 5 {
		t.Fatalf("news = %d items, want 5", len(items))
	}
	// Seeding ends with SentimentAI's float, and the feed is newest first.
	if items[0].Type != "ipo" || items[0].Ticker != "MOOD" {
		t.Fatalf("items[0] = %+v", items[0])
	}

	rec = do(t, s, http.MethodGet, "/news", nil)
	parse(t, rec, &items)
	if len(items) != 11 {
		t.Fatalf("full feed = %d items, want 11", len(items))
	}

	rec = do(t, s, http.MethodGet, "/api", nil)
	var info infoResponse
	parse(t, rec, &info)
	if info.Name != "AIVERSE" || info.Status != "online" || info.Companies != 5 || info.Agents != 1 {
		t.Fatalf("info = %+v", info)
	}

	rec = do(t, s, http.MethodGet, "/state", nil)
	var st world.State
	parse(t, rec, &st)
	if st.Tick != 0 || st.TotalCompanies != 5 {
		t.Fatalf("state = %+v", st)
	}
}

func TestUseService(t *testing.T) {
	t.Parallel()
	s, _ := newSeededServer(t)

	do(t, s, http.MethodPost, "/agents/join", map[string]any{"agent_id": "user9", "name": "User Nine"})

	rec := do(t, s, http.MethodPost, "/companies/ctx/use", map[string]any{"agent_id": "user9"})
	if rec.Code != http.StatusOK {
		t.Fatalf("use status = %d, body %s", rec.Code, rec.Body.String())
	}
	var action actionResponse
	parse(t, rec, &action)
	if !action.Success || !strings.Contains(action.Message, "5") {
		t.Fatalf("use response = %+v", action)
	}

	rec = do(t, s, http.MethodGet, "/agents/user9", nil)
	var a agentView
	parse(t, rec, &a)
	if !a.Balance.Equal(dec(995)) {
		t.Fatalf("balance = %s, want 995", a.Balance)
	}

	rec = do(t, s, http.MethodGet, "/companies/CTX", nil)
	var c companyView
	parse(t, rec, &c)
	if c.TotalAPICalls != 1 {
		t.Fatalf("api calls = %d, want 1", c.TotalAPICalls)
	}

	// POST lookups fail as 400, not 404.
	if rec := do(t, s, http.MethodPost, "/companies/none/use", map[string]any{"agent_id": "user9"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown ticker status = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/companies/ctx/use", map[string]any{"agent_id": "ghost"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown agent status = %d, want 400", rec.Code)
	}
}

func TestMarketNotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/market/NOPE", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWebSocketStream(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	go s.hub.Run()

	srv := httptest.NewServer(s.server.Handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if string(msg) != "pong" {
		t.Fatalf("reply = %q, want pong", msg)
	}

	// The pong round trip proves the client is registered, so this frame
	// cannot race the subscription.
	s.Broadcast(types.WorldEvent{
		Timestamp: time.Now().UTC(),
		Type:      types.EventNews,
		Ticker:    "CTX",
		Message:   "📰 ContextVault ships a new tier",
	})

	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var frame eventFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("decode frame %q: %v", msg, err)
	}
	if frame.Type != "event" || frame.EventType != "news" || frame.Ticker != "CTX" {
		t.Fatalf("frame = %+v", frame)
	}
}
