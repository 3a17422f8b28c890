package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamieWells1/solstice/internal/instrument"
)

func TestNew_Validation(t *testing.T) {
	inst := instrument.NewEquity("AAPL")

	_, err := New(1, inst, -1, 10, Bid)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = New(1, inst, 100, -5, Ask)
	assert.ErrorIs(t, err, ErrInvalidQnty)

	order, err := New(1, inst, 100, 10, Bid)
	require.NoError(t, err)
	assert.Equal(t, 10, order.Outstanding())
	assert.False(t, order.Placed().IsZero())
}

func TestOrder_PriceObserverSwitchesOnceMatched(t *testing.T) {
	order, err := New(1, instrument.NewEquity("AAPL"), 100, 10, Bid)
	require.NoError(t, err)

	assert.Equal(t, 100.0, order.Price())

	order.SetOutstanding(0)
	order.MarkFulfilled(101.5)

	assert.True(t, order.Matched())
	assert.Equal(t, 101.5, order.Price())
	assert.Equal(t, 100.0, order.LimitPrice())
}

func TestOrder_FulfilledTimeGatedOnMatch(t *testing.T) {
	order, err := New(1, instrument.NewEquity("AAPL"), 100, 10, Ask)
	require.NoError(t, err)

	_, err = order.Fulfilled()
	assert.ErrorIs(t, err, ErrNotFulfilled)

	order.MarkFulfilled(100)
	fulfilled, err := order.Fulfilled()
	require.NoError(t, err)
	assert.False(t, fulfilled.IsZero())
}

func TestNewOption(t *testing.T) {
	details := OptionDetails{
		UnderlyingEquity: "AAPL",
		Strike:           150,
		Type:             Call,
		Expiry:           0.25,
		Greeks:           Greeks{Delta: 0.5, Gamma: 0.01, Theta: -0.2, Vega: 20},
	}

	order, err := NewOption(1, instrument.NewOption("AAPL_DEC26_C"), 12.5, 3, Bid, details)
	require.NoError(t, err)
	require.NotNil(t, order.Option())
	assert.Equal(t, details, *order.Option())
	assert.Contains(t, order.String(), "Strike")
}

func TestNewOption_BadTicker(t *testing.T) {
	_, err := NewOption(1, instrument.NewOption("BOGUS"), 10, 1, Bid, OptionDetails{})
	assert.Error(t, err)
}

func TestOptionTypeFromSymbol(t *testing.T) {
	optType, err := OptionTypeFromSymbol("AAPL_DEC26_C")
	require.NoError(t, err)
	assert.Equal(t, Call, optType)

	optType, err = OptionTypeFromSymbol("MSFT_JUN26_P")
	require.NoError(t, err)
	assert.Equal(t, Put, optType)

	_, err = OptionTypeFromSymbol("AAPL_DEC26")
	assert.Error(t, err)
}

func TestMarketSide(t *testing.T) {
	assert.Equal(t, Ask, Bid.Opposite())
	assert.Equal(t, Bid, Ask.Opposite())
	assert.Equal(t, "Bid", Bid.String())
	assert.Equal(t, "Ask", Ask.String())
}
