package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamieWells1/solstice/internal/common"
)

// place adds the order to the book and runs the matcher, the way the
// orchestrator does per tick.
func place(t *testing.T, m *Matcher, uid int, price float64, qnty int, side common.MarketSide) (*common.Order, []Fill, error) {
	t.Helper()

	order := newTestOrder(t, uid, price, qnty, side)
	m.OrderBook().AddOrder(order)
	fills, err := m.MatchOrder(order)
	return order, fills, err
}

// assertUncrossed checks that after matching the book has no standing
// cross for the instrument.
func assertUncrossed(t *testing.T, book *OrderBook) {
	t.Helper()

	bestBid, bestAsk := book.BestQuotes(testInst)
	if bestBid != nil && bestAsk != nil {
		assert.Less(t, *bestBid, *bestAsk)
	}
}

func TestMatch_ExactCrossFullFill(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	bid, _, err := place(t, m, 1, 100, 10, common.Bid)
	assert.ErrorIs(t, err, ErrNoOppositeOrders)

	ask, fills, err := place(t, m, 2, 100, 10, common.Ask)
	require.NoError(t, err)
	require.Len(t, fills, 1)

	assert.True(t, bid.Matched())
	assert.True(t, ask.Matched())
	assert.Equal(t, 100.0, bid.MatchedPrice())
	assert.Equal(t, 100.0, ask.MatchedPrice())
	assert.Zero(t, bid.Outstanding())
	assert.Zero(t, ask.Outstanding())

	assert.Empty(t, m.OrderBook().books[testInst].bids)
	assert.Empty(t, m.OrderBook().books[testInst].asks)
}

func TestMatch_AggressiveCrossTakesRestingPrice(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	bid, _, err := place(t, m, 1, 105, 10, common.Bid)
	assert.Error(t, err)

	ask, fills, err := place(t, m, 2, 100, 10, common.Ask)
	require.NoError(t, err)
	require.Len(t, fills, 1)

	// resting quote wins
	assert.Equal(t, 105.0, bid.MatchedPrice())
	assert.Equal(t, 105.0, ask.MatchedPrice())
	assert.Equal(t, 105.0, fills[0].Price)
	assert.Zero(t, bid.Outstanding())
	assert.Zero(t, ask.Outstanding())
}

func TestMatch_WalksTwoLevels(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	first, _, _ := place(t, m, 1, 100, 3, common.Bid)
	second, _, _ := place(t, m, 2, 100, 3, common.Bid)
	third, _, _ := place(t, m, 3, 99, 4, common.Bid)

	incoming, fills, err := place(t, m, 4, 99, 10, common.Ask)
	require.NoError(t, err)
	require.Len(t, fills, 3)

	assert.Zero(t, incoming.Outstanding())
	assert.True(t, incoming.Matched())

	assert.Equal(t, 100.0, first.MatchedPrice())
	assert.Equal(t, 100.0, second.MatchedPrice())
	assert.Equal(t, 99.0, third.MatchedPrice())

	// FIFO at the 100 level: earlier-placed order fills first
	assert.Equal(t, 1, fills[0].Resting.UID())
	assert.Equal(t, 2, fills[1].Resting.UID())
	assert.Equal(t, 3, fills[2].Resting.UID())

	assertUncrossed(t, m.OrderBook())
}

func TestMatch_OutOfRangeRests(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	place(t, m, 1, 110, 10, common.Ask)

	bid, fills, err := place(t, m, 2, 100, 10, common.Bid)
	assert.ErrorIs(t, err, ErrNoCrossablePrice)
	assert.Empty(t, fills)
	assert.False(t, bid.Matched())

	bestBid, bestAsk := m.OrderBook().BestQuotes(testInst)
	require.NotNil(t, bestBid)
	require.NotNil(t, bestAsk)
	assert.Equal(t, 100.0, *bestBid)
	assert.Equal(t, 110.0, *bestAsk)
}

func TestMatch_SelfTradeBlocked(t *testing.T) {
	book := NewOrderBook()
	m := NewMatcher(book)

	resting := newTestOrder(t, 7, 100, 10, common.Ask)
	book.AddOrder(resting)

	// Same uid arriving on the opposite side: the only crossable
	// order is itself.
	incoming := newTestOrder(t, 7, 100, 10, common.Bid)
	book.AddOrder(incoming)

	fills, err := m.MatchOrder(incoming)
	assert.ErrorIs(t, err, ErrSelfTrade)
	assert.Empty(t, fills)
	assert.False(t, resting.Matched())
}

func TestMatch_PartialFillLeavesResting(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	resting, _, _ := place(t, m, 1, 100, 10, common.Ask)

	incoming, fills, err := place(t, m, 2, 100, 4, common.Bid)
	require.NoError(t, err)
	require.Len(t, fills, 1)

	assert.Equal(t, 4, fills[0].Qnty)
	assert.True(t, incoming.Matched())
	assert.Zero(t, incoming.Outstanding())

	assert.False(t, resting.Matched())
	assert.Equal(t, 6, resting.Outstanding())

	// resting order stays queued at its level
	queue := m.OrderBook().books[testInst].asks[100]
	require.Len(t, queue, 1)
	assert.Equal(t, 1, queue[0].UID())
}

func TestMatch_FillQuantityIsMinOfOutstanding(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	place(t, m, 1, 100, 3, common.Ask)

	_, fills, err := place(t, m, 2, 100, 8, common.Bid)
	assert.ErrorIs(t, err, ErrInsufficientOrders)
	require.Len(t, fills, 1)
	assert.Equal(t, 3, fills[0].Qnty)
}

func TestMatch_WalkStopsOutsidePriceRange(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	place(t, m, 1, 100, 3, common.Ask)
	place(t, m, 2, 104, 3, common.Ask)

	// Crosses 100, cannot reach 104: partial fill then out of range.
	incoming, fills, err := place(t, m, 3, 101, 10, common.Bid)
	assert.ErrorIs(t, err, ErrOutOfPriceRange)
	require.Len(t, fills, 1)

	assert.False(t, incoming.Matched())
	assert.Equal(t, 7, incoming.Outstanding())

	assertUncrossed(t, m.OrderBook())
}

func TestMatch_RecordsTransactions(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	place(t, m, 1, 100, 3, common.Bid)
	place(t, m, 2, 100, 3, common.Bid)
	place(t, m, 3, 100, 6, common.Ask)

	txns := m.OrderBook().Transactions()
	require.Len(t, txns, 2)

	for _, txn := range txns {
		assert.Len(t, txn.UID, 20)
		assert.Equal(t, 3, txn.AskUID)
		assert.Equal(t, 100.0, txn.Price)
		assert.Equal(t, 3, txn.Qnty)
		assert.Equal(t, testInst, txn.Instrument)
		assert.False(t, txn.Executed.IsZero())
	}

	assert.Equal(t, 1, txns[0].BidUID)
	assert.Equal(t, 2, txns[1].BidUID)
}

func TestMatch_OutstandingMonotoneAndMatchedMeansZero(t *testing.T) {
	m := NewMatcher(NewOrderBook())

	resting, _, _ := place(t, m, 1, 100, 10, common.Ask)
	prev := resting.Outstanding()

	for uid := 2; uid <= 4; uid++ {
		place(t, m, uid, 100, 3, common.Bid)

		assert.LessOrEqual(t, resting.Outstanding(), prev)
		prev = resting.Outstanding()
		assert.Equal(t, resting.Outstanding() == 0, resting.Matched())
	}

	_, err := resting.Fulfilled()
	assert.Error(t, err)

	place(t, m, 5, 100, 1, common.Bid)
	assert.True(t, resting.Matched())

	_, err = resting.Fulfilled()
	assert.NoError(t, err)
}
