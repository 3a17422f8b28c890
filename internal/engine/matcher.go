package engine

import (
	"errors"

	"github.com/JamieWells1/solstice/internal/common"
)

var (
	ErrSelfTrade          = errors.New("orders cannot match themselves")
	ErrOutOfPriceRange    = errors.New("all other orders out of price range")
	ErrInsufficientOrders = errors.New("insufficient orders available to fulfill incoming order")
)

// Fill records one execution between the incoming order and a resting
// order, in match order.
type Fill struct {
	Incoming    *common.Order
	Resting     *common.Order
	Price       float64
	Qnty        int
	Transaction Transaction
}

// Matcher walks the opposite side of the book in price-time priority,
// producing fills and mutating the book as it goes.
type Matcher struct {
	book *OrderBook
}

func NewMatcher(book *OrderBook) *Matcher {
	return &Matcher{book: book}
}

func (m *Matcher) OrderBook() *OrderBook { return m.book }

// MatchOrder attempts to cross the incoming order against the book.
// Fills accumulated before a walk fails are still returned alongside
// the error; their book mutations and transactions stand.
func (m *Matcher) MatchOrder(incoming *common.Order) ([]Fill, error) {
	best, err := m.book.BestPrice(incoming)
	if err != nil {
		return nil, err
	}
	return m.matchAt(incoming, best)
}

func (m *Matcher) matchAt(incoming *common.Order, bestPrice float64) ([]Fill, error) {
	queue := m.book.OppositeLevel(incoming, bestPrice)
	if len(queue) == 0 {
		return nil, ErrInsufficientOrders
	}

	resting := queue[0]

	if len(queue) == 1 && resting.UID() == incoming.UID() {
		return nil, ErrSelfTrade
	}

	switch {
	case resting.Outstanding() < incoming.Outstanding():
		// Partial fill against the resting order: consume it entirely
		// and keep walking.
		qnty := resting.Outstanding()
		incoming.SetOutstanding(incoming.Outstanding() - qnty)
		resting.SetOutstanding(0)

		fill := m.fill(incoming, resting, bestPrice, qnty)
		m.book.MarkFulfilled(resting, bestPrice)

		if len(m.book.OppositeLevel(incoming, bestPrice)) > 0 {
			rest, err := m.matchAt(incoming, bestPrice)
			return append([]Fill{fill}, rest...), err
		}

		nextPrice, ok := m.book.NextOppositePrice(incoming, bestPrice)
		if !ok {
			return []Fill{fill}, ErrInsufficientOrders
		}
		if !withinPriceRange(nextPrice, incoming) {
			return []Fill{fill}, ErrOutOfPriceRange
		}

		rest, err := m.matchAt(incoming, nextPrice)
		return append([]Fill{fill}, rest...), err

	case resting.Outstanding() == incoming.Outstanding():
		qnty := resting.Outstanding()
		resting.SetOutstanding(0)
		incoming.SetOutstanding(0)

		fill := m.fill(incoming, resting, bestPrice, qnty)
		m.book.MarkFulfilled(resting, bestPrice)
		m.book.MarkFulfilled(incoming, bestPrice)

		return []Fill{fill}, nil

	default: // resting > incoming
		qnty := incoming.Outstanding()
		resting.SetOutstanding(resting.Outstanding() - qnty)
		incoming.SetOutstanding(0)

		fill := m.fill(incoming, resting, bestPrice, qnty)
		m.book.MarkFulfilled(incoming, bestPrice)

		return []Fill{fill}, nil
	}
}

func (m *Matcher) fill(incoming, resting *common.Order, bestPrice float64, qnty int) Fill {
	price := dealPrice(incoming, resting)
	txn := m.book.recordTransaction(incoming, resting, price, qnty)

	return Fill{
		Incoming:    incoming,
		Resting:     resting,
		Price:       price,
		Qnty:        qnty,
		Transaction: txn,
	}
}

func withinPriceRange(price float64, order *common.Order) bool {
	if order.Side() == common.Bid {
		return price <= order.Price()
	}
	return price >= order.Price()
}

// dealPrice settles which side's quote a fill executes at: the resting
// side wins, and equal place-times fall back to the lower uid.
func dealPrice(first, second *common.Order) float64 {
	if first.Price() == second.Price() {
		return first.Price()
	}

	bid, ask := first, second
	if first.Side() != common.Bid {
		bid, ask = second, first
	}

	if ask.Placed().After(bid.Placed()) {
		return bid.Price()
	}
	if bid.Placed().After(ask.Placed()) {
		return ask.Price()
	}

	if bid.UID() > ask.UID() {
		return ask.Price()
	}
	return bid.Price()
}
