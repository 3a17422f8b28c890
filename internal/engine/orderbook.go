package engine

import (
	"errors"
	"fmt"

	"github.com/tidwall/btree"

	"github.com/JamieWells1/solstice/internal/common"
	"github.com/JamieWells1/solstice/internal/instrument"
)

var (
	ErrNoOppositeOrders = errors.New("no orders on opposite side")
	ErrNoCrossablePrice = errors.New("no crossable price on opposite side")
)

// activeOrders is the per-instrument book: a price to FIFO-queue map per
// side, plus redundant sorted price sets for O(log n) best-quote lookup
// and next-level walks. A price key exists iff its queue is non-empty,
// and each set mirrors the keyset of its map exactly.
type activeOrders struct {
	bids map[float64][]*common.Order
	asks map[float64][]*common.Order

	// bidPrices sorts greatest first, askPrices least first, so Min()
	// on either tree is the most aggressive quote for that side.
	bidPrices *btree.BTreeG[float64]
	askPrices *btree.BTreeG[float64]
}

func newActiveOrders() *activeOrders {
	return &activeOrders{
		bids:      make(map[float64][]*common.Order),
		asks:      make(map[float64][]*common.Order),
		bidPrices: btree.NewBTreeG(func(a, b float64) bool { return a > b }),
		askPrices: btree.NewBTreeG(func(a, b float64) bool { return a < b }),
	}
}

func (a *activeOrders) levels(side common.MarketSide) map[float64][]*common.Order {
	if side == common.Bid {
		return a.bids
	}
	return a.asks
}

func (a *activeOrders) prices(side common.MarketSide) *btree.BTreeG[float64] {
	if side == common.Bid {
		return a.bidPrices
	}
	return a.askPrices
}

// OrderBook owns every resting order and the transaction log for the
// life of a run. It is not safe for concurrent use by itself; the
// orchestrator serialises access per instrument.
type OrderBook struct {
	books        map[instrument.Instrument]*activeOrders
	transactions []Transaction
}

func NewOrderBook() *OrderBook {
	return &OrderBook{books: make(map[instrument.Instrument]*activeOrders)}
}

// InitInstruments pre-creates an empty book for every pool member so a
// snapshot of a quiet symbol is distinguishable from an unknown one.
func (b *OrderBook) InitInstruments(class instrument.AssetClass, pool []instrument.Symbol) {
	for _, sym := range pool {
		inst := instrument.Instrument{Class: class, Symbol: sym}
		if _, ok := b.books[inst]; !ok {
			b.books[inst] = newActiveOrders()
		}
	}
}

func (b *OrderBook) bookFor(inst instrument.Instrument) *activeOrders {
	book, ok := b.books[inst]
	if !ok {
		book = newActiveOrders()
		b.books[inst] = book
	}
	return book
}

// AddOrder appends the order to the FIFO at its limit price and
// registers the price in the side's sorted set if new.
func (b *OrderBook) AddOrder(order *common.Order) {
	book := b.bookFor(order.Instrument())
	side := order.Side()
	price := order.LimitPrice()

	book.prices(side).Set(price)
	book.levels(side)[price] = append(book.levels(side)[price], order)
}

// BestPrice returns the most aggressive opposite-side price that the
// order can cross: the lowest ask at or below a bid's limit, or the
// highest bid at or above an ask's limit.
func (b *OrderBook) BestPrice(order *common.Order) (float64, error) {
	book, ok := b.books[order.Instrument()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoOppositeOrders, order.Instrument())
	}

	best, ok := book.prices(order.Side().Opposite()).Min()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoOppositeOrders, order.Instrument())
	}

	if order.Side() == common.Bid && best > order.Price() {
		return 0, fmt.Errorf("%w: no ask at or below bid price", ErrNoCrossablePrice)
	}
	if order.Side() == common.Ask && best < order.Price() {
		return 0, fmt.Errorf("%w: no bid at or above ask price", ErrNoCrossablePrice)
	}

	return best, nil
}

// OppositeLevel returns the FIFO queue resting opposite the order at
// the given price, or nil if the level does not exist.
func (b *OrderBook) OppositeLevel(order *common.Order, price float64) []*common.Order {
	book, ok := b.books[order.Instrument()]
	if !ok {
		return nil
	}
	return book.levels(order.Side().Opposite())[price]
}

// NextOppositePrice walks the opposite side's price set to the next
// less-aggressive level after the given price.
func (b *OrderBook) NextOppositePrice(order *common.Order, after float64) (float64, bool) {
	book, ok := b.books[order.Instrument()]
	if !ok {
		return 0, false
	}

	var next float64
	var found bool
	book.prices(order.Side().Opposite()).Ascend(after, func(price float64) bool {
		if price == after {
			return true
		}
		next, found = price, true
		return false
	})

	return next, found
}

// RemoveOrder erases the order from its resting level. Orders always
// rest at their limit price regardless of any later match price. When
// the level empties, its price leaves the sorted set.
func (b *OrderBook) RemoveOrder(order *common.Order) {
	book, ok := b.books[order.Instrument()]
	if !ok {
		return
	}

	side := order.Side()
	price := order.LimitPrice()
	queue := book.levels(side)[price]

	for i, resting := range queue {
		if resting.UID() == order.UID() {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}

	if len(queue) == 0 {
		delete(book.levels(side), price)
		book.prices(side).Delete(price)
	} else {
		book.levels(side)[price] = queue
	}
}

// MarkFulfilled flips the order into its matched state at the given
// price and removes it from the book.
func (b *OrderBook) MarkFulfilled(order *common.Order, matchedPrice float64) {
	order.MarkFulfilled(matchedPrice)
	b.RemoveOrder(order)
}

// BestQuotes scans each side for the most aggressive level still
// carrying outstanding quantity. Nil means the side is empty.
func (b *OrderBook) BestQuotes(inst instrument.Instrument) (bestBid, bestAsk *float64) {
	book, ok := b.books[inst]
	if !ok {
		return nil, nil
	}

	pick := func(side common.MarketSide) *float64 {
		var best *float64
		book.prices(side).Scan(func(price float64) bool {
			total := 0
			for _, order := range book.levels(side)[price] {
				total += order.Outstanding()
			}
			if total > 0 {
				p := price
				best = &p
				return false
			}
			return true
		})
		return best
	}

	return pick(common.Bid), pick(common.Ask)
}

// Snapshot is a read-only copy of both sides of one instrument's book,
// taken for broadcasting and inspection.
type Snapshot struct {
	Bids map[float64][]*common.Order
	Asks map[float64][]*common.Order
}

func (b *OrderBook) Snapshot(inst instrument.Instrument) (Snapshot, bool) {
	book, ok := b.books[inst]
	if !ok {
		return Snapshot{}, false
	}

	copyLevels := func(levels map[float64][]*common.Order) map[float64][]*common.Order {
		out := make(map[float64][]*common.Order, len(levels))
		for price, queue := range levels {
			out[price] = append([]*common.Order(nil), queue...)
		}
		return out
	}

	return Snapshot{Bids: copyLevels(book.bids), Asks: copyLevels(book.asks)}, true
}

// Transactions exposes the fill log accumulated over the run.
func (b *OrderBook) Transactions() []Transaction {
	return b.transactions
}

// Instruments lists every instrument with a book, active or quiet.
func (b *OrderBook) Instruments() []instrument.Instrument {
	out := make([]instrument.Instrument, 0, len(b.books))
	for inst := range b.books {
		out = append(out, inst)
	}
	return out
}
