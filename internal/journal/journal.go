// Package journal persists the world's history to sqlite: one row per
// event, one row per trade. The daemon's event dispatcher is the only
// writer; readers query for recovery and analysis.
//
// Quantities and prices are stored as TEXT so decimal values round-trip
// exactly; REAL would quietly lose precision.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"aiverse/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    occurred_at DATETIME NOT NULL,
    event_type  TEXT     NOT NULL,
    ticker      TEXT     NOT NULL DEFAULT '',
    agent_id    TEXT     NOT NULL DEFAULT '',
    message     TEXT     NOT NULL,
    data        TEXT     NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    ticker      TEXT     NOT NULL,
    buyer_id    TEXT     NOT NULL,
    seller_id   TEXT     NOT NULL,
    quantity    TEXT     NOT NULL,
    price       TEXT     NOT NULL,
    executed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_at     ON events(occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_type   ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker);
CREATE INDEX IF NOT EXISTS idx_trades_at     ON trades(executed_at DESC);
`

// Journal is the sqlite-backed history store.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given path and applies the
// schema. Use ":memory:" for an ephemeral journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal.Open: apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one event. Trade events additionally land in the trades
// table, so the trade history is queryable on its own.
func (j *Journal) Record(ctx context.Context, ev types.WorldEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("journal.Record: marshal data: %w", err)
	}

	if _, err := j.db.ExecContext(ctx,
		`INSERT INTO events (occurred_at, event_type, ticker, agent_id, message, data) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.UTC(), string(ev.Type), ev.Ticker, ev.AgentID, ev.Message, string(data),
	); err != nil {
		return fmt.Errorf("journal.Record: insert event: %w", err)
	}

	if ev.Type == types.EventTrade {
		if err := j.recordTrade(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) recordTrade(ctx context.Context, ev types.WorldEvent) error {
	id, _ := ev.Data["trade_id"].(string)
	if id == "" {
		return nil // malformed trade event, keep the event row only
	}
	buyer, _ := ev.Data["buyer"].(string)
	seller, _ := ev.Data["seller"].(string)

	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trades (id, ticker, buyer_id, seller_id, quantity, price, executed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ev.Ticker, buyer, seller,
		decString(ev.Data["quantity"]), decString(ev.Data["price"]),
		ev.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("journal.Record: insert trade: %w", err)
	}
	return nil
}

// Events returns the latest events, newest first.
func (j *Journal) Events(ctx context.Context, limit int) ([]types.WorldEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT occurred_at, event_type, ticker, agent_id, message, data
		FROM events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal.Events: query: %w", err)
	}
	defer rows.Close()

	var out []types.WorldEvent
	for rows.Next() {
		var ev types.WorldEvent
		var typ, data string
		if err := rows.Scan(&ev.Timestamp, &typ, &ev.Ticker, &ev.AgentID, &ev.Message, &data); err != nil {
			return nil, fmt.Errorf("journal.Events: scan row: %w", err)
		}
		ev.Type = types.EventType(typ)
		if data != "" && data != "{}" {
			_ = json.Unmarshal([]byte(data), &ev.Data)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Trades returns the latest trades, newest first, optionally filtered by
// ticker.
func (j *Journal) Trades(ctx context.Context, ticker string, limit int) ([]types.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, ticker, buyer_id, seller_id, quantity, price, executed_at
		FROM trades
	`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY executed_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal.Trades: query: %w", err)
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var tr types.Trade
		var qty, price string
		if err := rows.Scan(&tr.ID, &tr.Ticker, &tr.BuyerID, &tr.SellerID, &qty, &price, &tr.Timestamp); err != nil {
			return nil, fmt.Errorf("journal.Trades: scan row: %w", err)
		}
		tr.Quantity, _ = decimal.NewFromString(qty)
		tr.Price, _ = decimal.NewFromString(price)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Counts reports the stored row totals.
func (j *Journal) Counts(ctx context.Context) (events, trades int, err error) {
	if err = j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&events); err != nil {
		return 0, 0, fmt.Errorf("journal.Counts: events: %w", err)
	}
	if err = j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&trades); err != nil {
		return 0, 0, fmt.Errorf("journal.Counts: trades: %w", err)
	}
	return events, trades, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// decString renders a Data map value as a plain decimal string. Values
// arrive as decimal.Decimal in-process and may come back as float64 or
// string after a JSON round-trip.
func decString(v any) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case string:
		return x
	case float64:
		return decimal.NewFromFloat(x).String()
	default:
		return "0"
	}
}
