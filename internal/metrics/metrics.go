// Package metrics exposes Prometheus instrumentation for the simulation,
// the exchange and the HTTP/WebSocket surface.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all AIVERSE metrics.
type Collector struct {
	// Order metrics
	OrdersTotal    *prometheus.CounterVec
	OrdersRejected *prometheus.CounterVec

	// Trade metrics
	TradesTotal *prometheus.CounterVec
	TradeVolume *prometheus.CounterVec
	TradeValue  *prometheus.CounterVec

	// Market metrics
	SharePrice *prometheus.GaugeVec
	MarketCap  *prometheus.GaugeVec

	// World metrics
	Tick              prometheus.Gauge
	TickDuration      prometheus.Histogram
	AgentsTotal       prometheus.Gauge
	CompaniesTotal    *prometheus.GaugeVec
	DividendsPaid     *prometheus.CounterVec
	BankruptciesTotal prometheus.Counter

	// Service metrics
	ServiceCalls *prometheus.CounterVec

	// Event metrics
	EventsTotal   *prometheus.CounterVec
	EventsDropped prometheus.Counter

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec

	// WebSocket metrics
	WSClientsActive prometheus.Gauge
	WSMessagesTotal prometheus.Counter
}

// GetCollector returns the singleton metrics collector.
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{}

	// Order metrics
	c.OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "orders",
			Name:      "total",
			Help:      "Total number of orders submitted",
		},
		[]string{"ticker", "side", "type", "status"},
	)

	c.OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "orders",
			Name:      "rejected_total",
			Help:      "Total number of orders rejected at admission",
		},
		[]string{"reason"},
	)

	// Trade metrics
	c.TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "trades",
			Name:      "total",
			Help:      "Total number of trades executed",
		},
		[]string{"ticker"},
	)

	c.TradeVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "trades",
			Name:      "volume_shares",
			Help:      "Total traded volume in shares",
		},
		[]string{"ticker"},
	)

	c.TradeValue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "trades",
			Name:      "value_credits",
			Help:      "Total traded value in credits",
		},
		[]string{"ticker"},
	)

	// Market metrics
	c.SharePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aiverse",
			Subsystem: "market",
			Name:      "share_price_credits",
			Help:      "Last trade price per share in credits",
		},
		[]string{"ticker"},
	)

	c.MarketCap = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aiverse",
			Subsystem: "market",
			Name:      "cap_credits",
			Help:      "Market capitalization in credits",
		},
		[]string{"ticker"},
	)

	// World metrics
	c.Tick = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aiverse",
			Subsystem: "world",
			Name:      "tick",
			Help:      "Current simulation tick",
		},
	)

	c.TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aiverse",
			Subsystem: "world",
			Name:      "tick_duration_ms",
			Help:      "Tick processing time in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	c.AgentsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aiverse",
			Subsystem: "world",
			Name:      "agents",
			Help:      "Number of registered agents",
		},
	)

	c.CompaniesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aiverse",
			Subsystem: "world",
			Name:      "companies",
			Help:      "Number of companies by status",
		},
		[]string{"status"},
	)

	c.DividendsPaid = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "world",
			Name:      "dividends_credits",
			Help:      "Total dividends distributed in credits",
		},
		[]string{"ticker"},
	)

	c.BankruptciesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "world",
			Name:      "bankruptcies_total",
			Help:      "Total number of company bankruptcies",
		},
	)

	// Service metrics
	c.ServiceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "services",
			Name:      "calls_total",
			Help:      "Total number of paid service calls",
		},
		[]string{"ticker"},
	)

	// Event metrics
	c.EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "events",
			Name:      "total",
			Help:      "Total number of world events emitted",
		},
		[]string{"type"},
	)

	c.EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of events dropped by the dispatcher",
		},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aiverse",
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	// WebSocket metrics
	c.WSClientsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aiverse",
			Subsystem: "websocket",
			Name:      "clients_active",
			Help:      "Number of connected WebSocket clients",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aiverse",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages pushed",
		},
	)

	c.registerAll()

	return c
}

func (c *Collector) registerAll() {
	prometheus.MustRegister(c.OrdersTotal)
	prometheus.MustRegister(c.OrdersRejected)

	prometheus.MustRegister(c.TradesTotal)
	prometheus.MustRegister(c.TradeVolume)
	prometheus.MustRegister(c.TradeValue)

	prometheus.MustRegister(c.SharePrice)
	prometheus.MustRegister(c.MarketCap)

	prometheus.MustRegister(c.Tick)
	prometheus.MustRegister(c.TickDuration)
	prometheus.MustRegister(c.AgentsTotal)
	prometheus.MustRegister(c.CompaniesTotal)
	prometheus.MustRegister(c.DividendsPaid)
	prometheus.MustRegister(c.BankruptciesTotal)

	prometheus.MustRegister(c.ServiceCalls)

	prometheus.MustRegister(c.EventsTotal)
	prometheus.MustRegister(c.EventsDropped)

	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)

	prometheus.MustRegister(c.WSClientsActive)
	prometheus.MustRegister(c.WSMessagesTotal)
}

// ============ Recording Helpers ============

// RecordOrder records a submitted order.
func (c *Collector) RecordOrder(ticker, side, orderType, status string) {
	c.OrdersTotal.WithLabelValues(ticker, side, orderType, status).Inc()
}

// RecordOrderRejected records an order bounced at admission.
func (c *Collector) RecordOrderRejected(reason string) {
	c.OrdersRejected.WithLabelValues(reason).Inc()
}

// RecordTrade records an executed trade.
func (c *Collector) RecordTrade(ticker string, volume, value float64) {
	c.TradesTotal.WithLabelValues(ticker).Inc()
	c.TradeVolume.WithLabelValues(ticker).Add(volume)
	c.TradeValue.WithLabelValues(ticker).Add(value)
}

// RecordServiceCall records a paid service call.
func (c *Collector) RecordServiceCall(ticker string) {
	c.ServiceCalls.WithLabelValues(ticker).Inc()
}

// RecordTick records one simulation tick.
func (c *Collector) RecordTick(tick int64, durationMs float64) {
	c.Tick.Set(float64(tick))
	c.TickDuration.Observe(durationMs)
}

// RecordEventDropped records an event discarded by a full dispatch queue.
func (c *Collector) RecordEventDropped() {
	c.EventsDropped.Inc()
}

// RecordAPIRequest records an API request.
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int) {
	c.WSClientsActive.Add(float64(delta))
}

// RecordWSMessage records a pushed WebSocket message.
func (c *Collector) RecordWSMessage() {
	c.WSMessagesTotal.Inc()
}

// SetMarket updates per-ticker market gauges.
func (c *Collector) SetMarket(ticker string, sharePrice, marketCap float64) {
	c.SharePrice.WithLabelValues(ticker).Set(sharePrice)
	c.MarketCap.WithLabelValues(ticker).Set(marketCap)
}

// UpdateWorldGauges updates population-level gauges.
func (c *Collector) UpdateWorldGauges(agents, private, public, bankrupt int) {
	c.AgentsTotal.Set(float64(agents))
	c.CompaniesTotal.WithLabelValues(string(types.CompanyPrivate)).Set(float64(private))
	c.CompaniesTotal.WithLabelValues(string(types.CompanyPublic)).Set(float64(public))
	c.CompaniesTotal.WithLabelValues(string(types.CompanyBankrupt)).Set(float64(bankrupt))
}

// ObserveEvent bumps event counters for a world event. Trade, dividend and
// bankruptcy events additionally feed their domain counters.
func (c *Collector) ObserveEvent(ev types.WorldEvent) {
	c.EventsTotal.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case types.EventTrade:
		qty := num(ev.Data["quantity"])
		price := num(ev.Data["price"])
		c.RecordTrade(ev.Ticker, qty, qty*price)
	case types.EventDividend:
		c.DividendsPaid.WithLabelValues(ev.Ticker).Add(num(ev.Data["total"]))
	case types.EventBankruptcy:
		c.BankruptciesTotal.Inc()
	}
}

// num converts event payload values. Events carry decimals in process and
// float64 after a JSON round trip.
func num(v any) float64 {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case float64:
		return x
	default:
		return 0
	}
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds.
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
