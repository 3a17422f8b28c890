package instrument

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnderlyingEquity(t *testing.T) {
	eq, err := UnderlyingEquity("AAPL_DEC26_C")
	require.NoError(t, err)
	assert.Equal(t, Symbol("AAPL"), eq)

	eq, err = UnderlyingEquity("MSFT_MAR26")
	require.NoError(t, err)
	assert.Equal(t, Symbol("MSFT"), eq)
}

func TestUnderlyingEquity_Errors(t *testing.T) {
	_, err := UnderlyingEquity("AAPL")
	assert.ErrorIs(t, err, ErrBadTickerFormat)

	// prefix that is not a listed equity
	_, err = UnderlyingEquity("XYZ_MAR26_C")
	assert.Error(t, err)
}

func TestYearsToExpiry(t *testing.T) {
	years, err := YearsToExpiry("AAPL_DEC26")
	require.NoError(t, err)

	months := 12 - int(time.Now().Month())
	if months < 0 {
		months = -months
	}
	if months == 0 {
		months = 1
	}
	assert.InDelta(t, float64(months)/12.0, years, 1e-9)

	// same-month expiries floor at one month
	assert.GreaterOrEqual(t, years, 1.0/12.0)
}

func TestYearsToExpiry_BadFormat(t *testing.T) {
	for _, sym := range []Symbol{"AAPL", "AAPL_XYZ26", "AAPL_M"} {
		_, err := YearsToExpiry(sym)
		assert.ErrorIs(t, err, ErrBadTickerFormat, "symbol %s", sym)
	}
}

func TestRegistry_PoolSampling(t *testing.T) {
	r := NewRegistry()
	r.InitPool(Equity, 5)

	pool := r.Pool(Equity)
	require.Len(t, pool, 5)

	seen := map[Symbol]bool{}
	for _, sym := range pool {
		assert.Contains(t, Equities, sym)
		assert.False(t, seen[sym], "duplicate %s in pool", sym)
		seen[sym] = true
	}
}

func TestRegistry_InitIsOneShot(t *testing.T) {
	r := NewRegistry()
	r.InitPool(Future, 3)
	first := r.Pool(Future)

	r.InitPool(Future, 12)
	assert.Equal(t, first, r.Pool(Future))
}

func TestRegistry_OversizedPoolKeepsFullSet(t *testing.T) {
	r := NewRegistry()
	r.InitPool(Future, 100)
	assert.Len(t, r.Pool(Future), len(Futures))
}

func TestRegistry_RandomFromPool(t *testing.T) {
	r := NewRegistry()
	r.InitPool(Option, 4)

	for i := 0; i < 50; i++ {
		inst, err := r.Random(Option)
		require.NoError(t, err)
		assert.Equal(t, Option, inst.Class)
		assert.Contains(t, r.Pool(Option), inst.Symbol)
	}
}

func TestRegistry_RandomBeforeInit(t *testing.T) {
	r := NewRegistry()

	_, err := r.Random(Equity)
	assert.ErrorIs(t, err, ErrPoolEmpty)
}
