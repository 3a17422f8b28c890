package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JamieWells1/solstice/internal/instrument"
)

type MarketSide int

const (
	Bid MarketSide = iota
	Ask
)

func (s MarketSide) String() string {
	if s == Bid {
		return "Bid"
	}
	return "Ask"
}

func (s MarketSide) Opposite() MarketSide {
	if s == Bid {
		return Ask
	}
	return Bid
}

type OptionType int

const (
	Call OptionType = iota
	Put
)

func (t OptionType) String() string {
	if t == Call {
		return "Call"
	}
	return "Put"
}

// OptionTypeFromSymbol reads the call/put tag off the symbol suffix.
func OptionTypeFromSymbol(sym instrument.Symbol) (OptionType, error) {
	switch {
	case strings.HasSuffix(string(sym), "_C"):
		return Call, nil
	case strings.HasSuffix(string(sym), "_P"):
		return Put, nil
	}
	return 0, fmt.Errorf("%w: %s has no option type suffix", instrument.ErrBadTickerFormat, sym)
}

// Greeks are the Black-Scholes sensitivities attached to an option
// order at creation time.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// OptionDetails extends an Order for the option asset class.
type OptionDetails struct {
	UnderlyingEquity instrument.Symbol
	Strike           float64
	Type             OptionType
	Expiry           float64 // years
	Greeks           Greeks
}

var (
	ErrInvalidPrice = errors.New("invalid price")
	ErrInvalidQnty  = errors.New("invalid quantity")
	ErrNotFulfilled = errors.New("order has not been fulfilled yet")
)

// Order is a limit order resting in or passing through the book.
// Orders are immutable once placed except for their fill state:
// outstanding quantity only ever decreases, and once matched the limit
// price gives way to the matched price.
type Order struct {
	uid    int
	inst   instrument.Instrument
	side   MarketSide
	limit  float64
	qnty   int
	placed time.Time

	outstanding  int
	matched      bool
	matchedPrice float64
	fulfilled    time.Time

	option *OptionDetails
}

// New validates the order attributes and stamps the placement time.
func New(uid int, inst instrument.Instrument, price float64, qnty int, side MarketSide) (*Order, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	if qnty < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQnty, qnty)
	}

	return &Order{
		uid:         uid,
		inst:        inst,
		side:        side,
		limit:       price,
		qnty:        qnty,
		outstanding: qnty,
		placed:      time.Now(),
	}, nil
}

// NewOption builds an option order; the details carry strike, type,
// expiry and the creation-time Greeks.
func NewOption(uid int, inst instrument.Instrument, price float64, qnty int, side MarketSide, details OptionDetails) (*Order, error) {
	order, err := New(uid, inst, price, qnty, side)
	if err != nil {
		return nil, err
	}

	if _, err := instrument.UnderlyingEquity(inst.Symbol); err != nil {
		return nil, err
	}

	order.option = &details
	return order, nil
}

func (o *Order) UID() int { return o.uid }
func (o *Order) Instrument() instrument.Instrument { return o.inst }
func (o *Order) AssetClass() instrument.AssetClass { return o.inst.Class }
func (o *Order) Side() MarketSide { return o.side }
func (o *Order) LimitPrice() float64 { return o.limit }
func (o *Order) Qnty() int { return o.qnty }
func (o *Order) Outstanding() int { return o.outstanding }
func (o *Order) Placed() time.Time { return o.placed }
func (o *Order) Matched() bool { return o.matched }
func (o *Order) MatchedPrice() float64 { return o.matchedPrice }
func (o *Order) Option() *OptionDetails { return o.option }

// Price is the observable price of the order: the limit while resting,
// the matched price once filled.
func (o *Order) Price() float64 {
	if o.matched {
		return o.matchedPrice
	}
	return o.limit
}

// SetOutstanding records a fill against the order.
func (o *Order) SetOutstanding(qnty int) {
	o.outstanding = qnty
}

// MarkFulfilled flips the order into its matched state and stamps the
// fulfilment time. The match price may differ from the limit.
func (o *Order) MarkFulfilled(matchedPrice float64) {
	o.matched = true
	o.matchedPrice = matchedPrice
	o.fulfilled = time.Now()
}

// Fulfilled returns the fulfilment time; it only exists once the order
// has matched.
func (o *Order) Fulfilled() (time.Time, error) {
	if !o.matched {
		return time.Time{}, ErrNotFulfilled
	}
	return o.fulfilled, nil
}

func (o *Order) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Order: %d | Asset class: %s | Side: %s | Ticker: %s | Price: $%.2f | Qnty: %d | Remaining Qnty: %d",
		o.uid, o.inst.Class, o.side, o.inst.Symbol, o.Price(), o.qnty, o.outstanding)

	if o.option != nil {
		fmt.Fprintf(&sb, " | Strike: $%.2f | Type: %s | Expiry: %.2fy",
			o.option.Strike, o.option.Type, o.option.Expiry)
	}

	return sb.String()
}
