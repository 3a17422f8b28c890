package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/JamieWells1/solstice/internal/common"
	"github.com/JamieWells1/solstice/internal/instrument"
)

// Transaction is the immutable record of one fill between a bid and an
// ask. Transactions are created by the matcher via the book and live in
// the book's log for the rest of the run.
type Transaction struct {
	UID        string
	BidUID     int
	AskUID     int
	Instrument instrument.Instrument
	Price      float64
	Qnty       int
	Executed   time.Time
}

const transactionUIDLen = 20

func newTransactionUID() string {
	digits := make([]byte, transactionUIDLen)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return string(digits)
}

// recordTransaction appends a fill between the pair to the log. Which
// order is the bid is resolved here so callers can pass them in match
// order.
func (b *OrderBook) recordTransaction(first, second *common.Order, price float64, qnty int) Transaction {
	bid, ask := first, second
	if first.Side() != common.Bid {
		bid, ask = second, first
	}

	txn := Transaction{
		UID:        newTransactionUID(),
		BidUID:     bid.UID(),
		AskUID:     ask.UID(),
		Instrument: bid.Instrument(),
		Price:      price,
		Qnty:       qnty,
		Executed:   time.Now(),
	}

	b.transactions = append(b.transactions, txn)
	return txn
}

func (t Transaction) String() string {
	return fmt.Sprintf("Transaction UID: %s | Bid order UID: %d | Ask order UID: %d | Ticker: %s | Price: %.2f | Quantity: %d",
		t.UID, t.BidUID, t.AskUID, t.Instrument.Symbol, t.Price, t.Qnty)
}
