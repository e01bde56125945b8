// Package book implements the per-ticker central limit order book.
//
// Each side of the book is a B-tree of price levels; each level holds its
// resting orders in FIFO arrival order. Best-of-side lookups therefore give
// price-time priority directly: best price level first, oldest order within
// the level first.
//
// The book holds no lock of its own. All access is serialized by the world
// lock of the owning exchange.
package book

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"aiverse/pkg/types"
)

const btreeDegree = 32

// level is one price level: the resting orders at a single price, oldest
// first.
type level struct {
	price  decimal.Decimal
	orders []*types.Order
}

// Less orders levels ascending by price. Bids and asks both store levels
// ascending; the side picks Max or Min for its best.
func (l *level) Less(other btree.Item) bool {
	return l.price.LessThan(other.(*level).price)
}

func (l *level) add(o *types.Order) {
	l.orders = append(l.orders, o)
}

// remove drops the order with the given id from the level, preserving FIFO
// order of the rest. Returns false if the order is not at this level.
func (l *level) remove(id string) bool {
	for i, o := range l.orders {
		if o.ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// openQuantity sums the unfilled quantity of the level's live orders.
func (l *level) openQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, o := range l.orders {
		if o.Open() {
			total = total.Add(o.Remaining())
		}
	}
	return total
}

// side is one half of the book. desc selects which end of the tree is the
// best price: true for bids (highest first), false for asks (lowest first).
type side struct {
	tree *btree.BTree
	desc bool
}

func newSide(desc bool) *side {
	return &side{tree: btree.New(btreeDegree), desc: desc}
}

func (s *side) get(price decimal.Decimal) *level {
	item := s.tree.Get(&level{price: price})
	if item == nil {
		return nil
	}
	return item.(*level)
}

func (s *side) getOrCreate(price decimal.Decimal) *level {
	if l := s.get(price); l != nil {
		return l
	}
	l := &level{price: price}
	s.tree.ReplaceOrInsert(l)
	return l
}

func (s *side) bestLevel() *level {
	var item btree.Item
	if s.desc {
		item = s.tree.Max()
	} else {
		item = s.tree.Min()
	}
	if item == nil {
		return nil
	}
	return item.(*level)
}

// bestOpen returns the order that would trade next on this side. Head
// entries that are no longer open (cancelled by bankruptcy or invalidated
// elsewhere) are discarded on the way; this is the lazy reclamation path
// for orders that leave the book outside of matching.
func (s *side) bestOpen() *types.Order {
	for {
		l := s.bestLevel()
		if l == nil {
			return nil
		}
		for len(l.orders) > 0 {
			o := l.orders[0]
			if o.Open() {
				return o
			}
			l.orders = l.orders[1:]
		}
		s.tree.Delete(l)
	}
}

func (s *side) remove(o *types.Order) bool {
	l := s.get(o.Price)
	if l == nil {
		return false
	}
	ok := l.remove(o.ID)
	if ok && len(l.orders) == 0 {
		s.tree.Delete(l)
	}
	return ok
}

// Book is the order book for a single ticker. It is rebuilt empty on
// process start; resting state is not persisted.
type Book struct {
	Ticker string

	bids *side
	asks *side
}

// New creates an empty book for a ticker.
func New(ticker string) *Book {
	return &Book{
		Ticker: ticker,
		bids:   newSide(true),
		asks:   newSide(false),
	}
}

// Add inserts a resting limit order. The caller guarantees the order is a
// LIMIT in an open status; market orders never rest.
func (b *Book) Add(o *types.Order) {
	if o.Side == types.BUY {
		b.bids.getOrCreate(o.Price).add(o)
		return
	}
	b.asks.getOrCreate(o.Price).add(o)
}

// Remove takes an order off the book, dropping its price level if it was
// the last order there. Used by the matching loop when a resting order
// fills or is found dead.
func (b *Book) Remove(o *types.Order) bool {
	if o.Side == types.BUY {
		return b.bids.remove(o)
	}
	return b.asks.remove(o)
}

// BestBid returns the buy order that would trade next, or nil.
func (b *Book) BestBid() *types.Order {
	return b.bids.bestOpen()
}

// BestAsk returns the sell order that would trade next, or nil.
func (b *Book) BestAsk() *types.Order {
	return b.asks.bestOpen()
}

// Spread returns the best bid and ask prices. ok is false unless both
// sides have a live order.
func (b *Book) Spread() (bid, ask decimal.Decimal, ok bool) {
	bb := b.BestBid()
	ba := b.BestAsk()
	if bb == nil || ba == nil {
		return decimal.Zero, decimal.Zero, false
	}
	return bb.Price, ba.Price, true
}

// Depth returns the number of price levels on each side, counting levels
// that may still hold only dead orders awaiting lazy discard.
func (b *Book) Depth() (bidLevels, askLevels int) {
	return b.bids.tree.Len(), b.asks.tree.Len()
}

// OpenQuantityAt reports the live resting quantity at an exact price on
// one side. Zero if the level does not exist.
func (b *Book) OpenQuantityAt(s types.Side, price decimal.Decimal) decimal.Decimal {
	var l *level
	if s == types.BUY {
		l = b.bids.get(price)
	} else {
		l = b.asks.get(price)
	}
	if l == nil {
		return decimal.Zero
	}
	return l.openQuantity()
}
