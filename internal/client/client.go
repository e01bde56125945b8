// Package client is the Go client for the AIVERSE API.
//
// The REST client (Client) covers the full route surface — joining,
// company actions, orders, market data, and the read-only views. Every
// request is paced through a token bucket and automatically retried on
// 5xx errors. EventStream follows the server's WebSocket event feed with
// automatic reconnection.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Client talks to an AIVERSE server.
type Client struct {
	http   *resty.Client
	pace   *TokenBucket
	logger *slog.Logger
}

// New creates a REST client with pacing and retry.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		pace:   NewTokenBucket(20, 10),
		logger: logger.With("component", "client"),
	}
}

// get runs a paced GET and decodes the response into result.
func (c *Client) get(ctx context.Context, op, path string, query map[string]string, result any) error {
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result).
		SetError(&apiError{}).
		Get(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return failure(op, resp)
	}
	return nil
}

// post runs a paced POST and decodes the response into result.
func (c *Client) post(ctx context.Context, op, path string, body, result any) error {
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&apiError{}).
		Post(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return failure(op, resp)
	}
	return nil
}

// failure turns a non-200 response into an error, preferring the server's
// own message when it sent one.
func failure(op string, resp *resty.Response) error {
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		return fmt.Errorf("%s: %s", op, e.Message)
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), resp.String())
}

// Info fetches the API identity card.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var result Info
	if err := c.get(ctx, "get info", "/api", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// State fetches the world snapshot.
func (c *Client) State(ctx context.Context) (*State, error) {
	var result State
	if err := c.get(ctx, "get state", "/state", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// News fetches the latest events, newest first.
func (c *Client) News(ctx context.Context, limit int) ([]NewsEvent, error) {
	var result []NewsEvent
	if err := c.get(ctx, "get news", "/news", limitParam(limit), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Join registers an agent and returns its view.
func (c *Client) Join(ctx context.Context, agentID, name string) (*Agent, error) {
	body := map[string]string{"agent_id": agentID, "name": name}
	var result Agent
	if err := c.post(ctx, "join", "/agents/join", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Agent fetches one agent by id.
func (c *Client) Agent(ctx context.Context, id string) (*Agent, error) {
	var result Agent
	if err := c.get(ctx, "get agent", "/agents/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Agents fetches the public agent list.
func (c *Client) Agents(ctx context.Context) ([]AgentSummary, error) {
	var result []AgentSummary
	if err := c.get(ctx, "list agents", "/agents", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Leaderboard fetches the net-worth ranking.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]Ranking, error) {
	var result []Ranking
	if err := c.get(ctx, "get leaderboard", "/leaderboard", limitParam(limit), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateCompany founds a company on the founder's coin.
func (c *Client) CreateCompany(ctx context.Context, req CreateCompanyRequest) (*Company, error) {
	var result Company
	if err := c.post(ctx, "create company", "/companies/create", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Companies fetches every company.
func (c *Client) Companies(ctx context.Context) ([]Company, error) {
	var result []Company
	if err := c.get(ctx, "list companies", "/companies", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Company fetches one company by ticker.
func (c *Client) Company(ctx context.Context, ticker string) (*Company, error) {
	var result Company
	if err := c.get(ctx, "get company", "/companies/"+ticker, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LaunchIPO floats a private company's shares.
func (c *Client) LaunchIPO(ctx context.Context, ticker string, shares, price decimal.Decimal) (*Action, error) {
	body := map[string]any{"shares": shares, "price": price}
	var result Action
	if err := c.post(ctx, "launch ipo", "/companies/"+ticker+"/ipo", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UseService pays a company for one service call.
func (c *Client) UseService(ctx context.Context, agentID, ticker string) (*Action, error) {
	body := map[string]string{"agent_id": agentID}
	var result Action
	if err := c.post(ctx, "use service", "/companies/"+ticker+"/use", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitOrder places an order and returns its settled state.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	var result OrderResult
	if err := c.post(ctx, "submit order", "/orders", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Market fetches the quote for a ticker.
func (c *Client) Market(ctx context.Context, ticker string) (*MarketData, error) {
	var result MarketData
	if err := c.get(ctx, "get market", "/market/"+ticker, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Trades fetches recent trades, newest first. An empty ticker means all
// tickers.
func (c *Client) Trades(ctx context.Context, ticker string, limit int) ([]Trade, error) {
	query := limitParam(limit)
	if ticker != "" {
		if query == nil {
			query = map[string]string{}
		}
		query["ticker"] = ticker
	}
	var result []Trade
	if err := c.get(ctx, "list trades", "/trades", query, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func limitParam(limit int) map[string]string {
	if limit <= 0 {
		return nil
	}
	return map[string]string{"limit": fmt.Sprintf("%d", limit)}
}
