package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

// SubmitOrder admits an order, crosses it against the book, and settles the
// resulting trades. The returned order carries the final status: FILLED or
// PARTIAL after crossing, PENDING for a resting limit order, CANCELLED for
// a market order that found no counterparty. Admission failures return a
// rejection error and leave no trace in the order index.
func (e *Exchange) SubmitOrder(o *types.Order) (*types.Order, error) {
	agent, ok := e.agents[o.AgentID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	o.Ticker = strings.ToUpper(o.Ticker)
	if _, ok := e.companies[o.Ticker]; !ok {
		return nil, ErrCompanyNotFound
	}

	// Admission: buys must afford the order at its effective price, sells
	// must hold the shares. Buys check available cash (balance minus the
	// escrow already committed to other resting bids).
	var required decimal.Decimal
	if o.Side == types.BUY {
		effective := o.Price
		if o.Type == types.OrderTypeMarket {
			effective = e.marketPrice(o.Ticker, types.BUY)
		}
		required = o.Quantity.Mul(effective)
		if agent.Available().LessThan(required) {
			return nil, ErrInsufficientFunds
		}
	} else {
		if agent.Portfolio.Get(o.Ticker).LessThan(o.Quantity) {
			return nil, ErrInsufficientHoldings
		}
	}

	if o.ID == "" {
		o.ID = types.NewID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.Status = types.OrderStatusPending
	e.orders[o.ID] = o

	// Escrow the cash for a buy. The reserve is released fill by fill, or
	// in full when a market order finalizes; Balance itself is only
	// debited by settlement.
	if o.Side == types.BUY {
		o.Reserved = required
		agent.Reserved = agent.Reserved.Add(required)
	}

	if o.Type == types.OrderTypeMarket {
		o.Price = e.marketPrice(o.Ticker, o.Side)
		e.match(o)
		if o.Status == types.OrderStatusPending {
			o.Status = types.OrderStatusCancelled // no liquidity
		}
		e.releaseEscrow(o) // market orders never rest
		return o, nil
	}

	e.match(o)
	if o.Open() {
		e.books[o.Ticker].Add(o)
	}
	return o, nil
}

// marketPrice is the effective price for a market order: top of the
// opposite side of the book, or the company's last share price when the
// book is empty.
func (e *Exchange) marketPrice(ticker string, side types.Side) decimal.Decimal {
	bk := e.books[ticker]
	if bk != nil {
		if side == types.BUY {
			if ask := bk.BestAsk(); ask != nil {
				return ask.Price
			}
		} else {
			if bid := bk.BestBid(); bid != nil {
				return bid.Price
			}
		}
	}
	return e.companies[ticker].SharePrice
}

// match crosses the taker against the opposite side of the book until the
// taker is filled, the book empties, or prices stop crossing. Trades
// execute at the resting (maker) order's price.
func (e *Exchange) match(taker *types.Order) {
	bk := e.books[taker.Ticker]
	if bk == nil {
		return
	}
	buyer := e.agents[taker.AgentID]

	for !taker.IsFilled() {
		var maker *types.Order
		if taker.Side == types.BUY {
			maker = bk.BestAsk()
			if maker == nil || (taker.Type == types.OrderTypeLimit && maker.Price.GreaterThan(taker.Price)) {
				break
			}
		} else {
			maker = bk.BestBid()
			if maker == nil || (taker.Type == types.OrderTypeLimit && maker.Price.LessThan(taker.Price)) {
				break
			}
		}

		qty := decimal.Min(taker.Remaining(), maker.Remaining())

		// A resting sell whose owner no longer holds the shares (wiped by
		// bankruptcy, or committed twice) is dead: cancel it and move on.
		if maker.Side == types.SELL {
			if e.agents[maker.AgentID].Portfolio.Get(maker.Ticker).LessThan(qty) {
				maker.Status = types.OrderStatusCancelled
				bk.Remove(maker)
				continue
			}
		}

		// Market buys walk the book above their effective price; stop
		// before a fill the buyer can no longer cover.
		if taker.Side == types.BUY && taker.Type == types.OrderTypeMarket {
			cost := qty.Mul(maker.Price)
			releasable := decimal.Min(taker.Reserved, qty.Mul(taker.Price))
			if buyer.Available().Add(releasable).LessThan(cost) {
				break
			}
		}

		e.executeTrade(taker, maker, qty, maker.Price)

		if maker.IsFilled() {
			bk.Remove(maker)
		}
	}
}

// executeTrade settles one fill atomically: cash and shares move between
// the two agents, both orders and the company's last price advance, the
// trade is appended to the log, and a trade event is emitted.
func (e *Exchange) executeTrade(a, b *types.Order, qty, price decimal.Decimal) {
	buyOrder, sellOrder := a, b
	if a.Side != types.BUY {
		buyOrder, sellOrder = b, a
	}
	buyer := e.agents[buyOrder.AgentID]
	seller := e.agents[sellOrder.AgentID]
	ticker := buyOrder.Ticker
	total := qty.Mul(price)

	// Cash leg. The buy order's escrow is released at its own price: for a
	// limit buy that always covers the fill (fills happen at or below the
	// limit), for a market buy the shortfall was checked by the caller.
	release := decimal.Min(buyOrder.Reserved, qty.Mul(buyOrder.Price))
	buyOrder.Reserved = buyOrder.Reserved.Sub(release)
	buyer.Reserved = buyer.Reserved.Sub(release)
	buyer.Balance = buyer.Balance.Sub(total)
	seller.Balance = seller.Balance.Add(total)

	// Share leg. Portfolio.Add purges emptied entries.
	seller.Portfolio.Add(ticker, qty.Neg())
	buyer.Portfolio.Add(ticker, qty)

	now := time.Now()
	for _, o := range []*types.Order{buyOrder, sellOrder} {
		o.FilledQuantity = o.FilledQuantity.Add(qty)
		o.FilledPrice = price
		if o.IsFilled() {
			o.Status = types.OrderStatusFilled
			t := now
			o.FilledAt = &t
		} else {
			o.Status = types.OrderStatusPartial
		}
	}

	buyer.TotalTrades++
	seller.TotalTrades++

	trade := &types.Trade{
		ID:            types.NewID(),
		Ticker:        ticker,
		BuyerID:       buyer.ID,
		SellerID:      seller.ID,
		Quantity:      qty,
		Price:         price,
		Timestamp:     now,
		BuyerOrderID:  buyOrder.ID,
		SellerOrderID: sellOrder.ID,
	}
	e.trades = append(e.trades, trade)

	company := e.companies[ticker]
	company.SetSharePrice(price)
	e.priceHistory[ticker] = append(e.priceHistory[ticker], types.PricePoint{Timestamp: now, Price: price})

	e.emit(types.WorldEvent{
		Timestamp: now,
		Type:      types.EventTrade,
		Ticker:    ticker,
		AgentID:   buyer.ID,
		Data: map[string]any{
			"trade_id": trade.ID,
			"quantity": qty,
			"price":    price,
			"buyer":    buyer.ID,
			"seller":   seller.ID,
		},
		Message: fmt.Sprintf("💱 $%s: %s shares @ %s₳", ticker, qty, price),
	})
}

// releaseEscrow returns an order's remaining cash reserve to its agent.
// Called when a market order finalizes or a resting buy is cancelled.
func (e *Exchange) releaseEscrow(o *types.Order) {
	if o.Reserved.IsZero() {
		return
	}
	if a, ok := e.agents[o.AgentID]; ok {
		a.Reserved = a.Reserved.Sub(o.Reserved)
	}
	o.Reserved = decimal.Zero
}
