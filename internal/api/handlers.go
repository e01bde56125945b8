package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"aiverse/internal/exchange"
	"aiverse/internal/world"
	"aiverse/pkg/types"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	world  *world.World
	hub    *Hub
	logger *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(w *world.World, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		world:  w,
		hub:    hub,
		logger: logger.With("component", "api-handlers"),
	}
}

// Info serves the API identity card.
func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	st := h.world.State()
	writeJSON(w, http.StatusOK, infoResponse{
		Name:      "AIVERSE",
		Version:   "0.1.0",
		Status:    "online",
		Agents:    st.TotalAgents,
		Companies: st.TotalCompanies,
		Trades:    st.TotalTrades,
	})
}

// State serves the world snapshot.
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.world.State())
}

// News serves the latest events, newest first.
func (h *Handlers) News(w http.ResponseWriter, r *http.Request) {
	events := h.world.NewsFeed(queryInt(r, "limit", 20))
	items := make([]newsItem, 0, len(events))
	for _, ev := range events {
		items = append(items, newsItem{
			Type:      string(ev.Type),
			Ticker:    ev.Ticker,
			Message:   ev.Message,
			Timestamp: ev.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Join registers the caller as a world agent. Rejoining returns the
// existing agent unchanged.
func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.AgentID = strings.TrimSpace(req.AgentID)
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	if req.Name == "" {
		req.Name = req.AgentID
	}
	writeJSON(w, http.StatusOK, newAgentView(h.world.Join(req.AgentID, req.Name)))
}

// GetAgent serves one agent by id.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.world.Agent(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, newAgentView(a))
}

// ListAgents serves every agent except the system treasury.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.world.Agents()
	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		if a.ID == world.SystemAgentID {
			continue
		}
		out = append(out, agentSummary{
			ID:          a.ID,
			Name:        a.Name,
			Balance:     a.Balance,
			TotalTrades: a.TotalTrades,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

// Leaderboard serves the net-worth ranking, system treasury excluded.
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.world.Leaderboard(queryInt(r, "limit", 10)))
}

// CreateCompany founds a company on the caller's coin.
func (h *Handlers) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FounderID == "" || req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "founder_id and ticker are required")
		return
	}
	if req.ServiceCost.IsZero() {
		req.ServiceCost = decimal.NewFromInt(1)
	}

	c, err := h.world.CreateCompany(req.FounderID, req.Ticker, req.Name, req.Description, req.ServiceType, req.ServiceCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newCompanyView(c))
}

// ListCompanies serves every company, sorted by ticker.
func (h *Handlers) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies := h.world.Companies()
	sort.Slice(companies, func(i, j int) bool { return companies[i].Ticker < companies[j].Ticker })
	out := make([]companyView, 0, len(companies))
	for _, c := range companies {
		out = append(out, newCompanyView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCompany serves one company by ticker.
func (h *Handlers) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, ok := h.world.Company(r.PathValue("ticker"))
	if !ok {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	writeJSON(w, http.StatusOK, newCompanyView(c))
}

// LaunchIPO floats a private company's shares.
func (h *Handlers) LaunchIPO(w http.ResponseWriter, r *http.Request) {
	var req ipoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Shares.IsPositive() || !req.Price.IsPositive() {
		writeError(w, http.StatusBadRequest, "shares and price must be positive")
		return
	}

	msg, err := h.world.LaunchIPO(r.PathValue("ticker"), req.Shares, req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: msg})
}

// UseService has an agent pay a company for one service call.
func (h *Handlers) UseService(w http.ResponseWriter, r *http.Request) {
	var req useServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	msg, err := h.world.UseService(req.AgentID, r.PathValue("ticker"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: msg})
}

// SubmitOrder places an order and reports its settled state.
func (h *Handlers) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	side := types.Side(strings.ToLower(req.Side))
	if side != types.BUY && side != types.SELL {
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}
	typ := types.OrderTypeLimit
	if req.OrderType != "" {
		typ = types.OrderType(strings.ToLower(req.OrderType))
	}
	if typ != types.OrderTypeLimit && typ != types.OrderTypeMarket {
		writeError(w, http.StatusBadRequest, "order_type must be limit or market")
		return
	}
	if !req.Quantity.IsPositive() {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if typ == types.OrderTypeLimit && !req.Price.IsPositive() {
		writeError(w, http.StatusBadRequest, "limit orders need a positive price")
		return
	}

	o, err := h.world.SubmitOrder(req.AgentID, req.Ticker, side, typ, req.Quantity, req.Price)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, exchange.ErrInsufficientFunds) || errors.Is(err, exchange.ErrInsufficientHoldings) {
			msg = "Order rejected (insufficient balance/holdings)"
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	writeJSON(w, http.StatusOK, orderResult{
		OrderID:        o.ID,
		Status:         o.Status,
		FilledQuantity: o.FilledQuantity,
		FilledPrice:    o.FilledPrice,
	})
}

// GetMarket serves the quote for a ticker.
func (h *Handlers) GetMarket(w http.ResponseWriter, r *http.Request) {
	md, ok := h.world.MarketData(r.PathValue("ticker"))
	if !ok {
		writeError(w, http.StatusNotFound, "ticker not found")
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// Trades serves recent trades, newest first. The limit applies before the
// ticker filter, so a filtered page can come back short.
func (h *Handlers) Trades(w http.ResponseWriter, r *http.Request) {
	trades := h.world.RecentTrades(r.URL.Query().Get("ticker"), queryInt(r, "limit", 50))
	out := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeView{
			ID:        t.ID,
			Ticker:    t.Ticker,
			Buyer:     t.BuyerID,
			Seller:    t.SellerID,
			Quantity:  t.Quantity,
			Price:     t.Price,
			Timestamp: t.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ServeWS upgrades the connection and registers a new event subscriber.
func (h *Handlers) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	NewClient(h.hub, conn)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// queryInt reads an integer query parameter, falling back on junk.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
