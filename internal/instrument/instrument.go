package instrument

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AssetClass tags which family of the simulated universe an instrument
// belongs to. The pricer dispatches on this tag.
type AssetClass uint8

const (
	Equity AssetClass = iota
	Future
	Option
)

var assetClassNames = map[AssetClass]string{
	Equity: "Equity",
	Future: "Future",
	Option: "Option",
}

func (c AssetClass) String() string {
	if name, ok := assetClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("AssetClass(%d)", uint8(c))
}

// Symbol is a ticker string. Futures carry a month+year suffix
// (AAPL_MAR26); options additionally carry a call/put suffix
// (AAPL_MAR26_C).
type Symbol string

// Fixed enumerations of the simulated universe. Pools are sampled from
// these at startup.
var (
	Equities = []Symbol{
		"AAPL", "MSFT", "GOOGL", "AMZN", "META", "BLK", "NVDA", "AMD", "INTC", "QCOM",
		"JPM", "BAC", "CRM", "GS", "MS", "ORCL", "IBM", "TSM", "UBER", "LYFT",
		"TSLA",
	}

	Futures = []Symbol{
		"AAPL_MAR26", "AAPL_JUN26", "AAPL_SEP26", "AAPL_DEC26",
		"MSFT_MAR26", "MSFT_JUN26", "MSFT_SEP26", "MSFT_DEC26",
		"TSLA_MAR26", "TSLA_JUN26", "TSLA_SEP26", "TSLA_DEC26",
	}

	Options = []Symbol{
		"AAPL_MAR26_C", "AAPL_JUN26_C", "AAPL_SEP26_C", "AAPL_DEC26_C",
		"AAPL_MAR26_P", "AAPL_JUN26_P", "AAPL_SEP26_P", "AAPL_DEC26_P",
		"MSFT_MAR26_C", "MSFT_JUN26_C", "MSFT_SEP26_C", "MSFT_DEC26_C",
		"MSFT_MAR26_P", "MSFT_JUN26_P", "MSFT_SEP26_P", "MSFT_DEC26_P",
		"TSLA_MAR26_C", "TSLA_JUN26_C", "TSLA_SEP26_C", "TSLA_DEC26_C",
		"TSLA_MAR26_P", "TSLA_JUN26_P", "TSLA_SEP26_P", "TSLA_DEC26_P",
	}
)

// Instrument is a single tradeable: the asset class tag plus the
// concrete symbol. It is a comparable value and is used as the key for
// books, price data and per-symbol locks.
type Instrument struct {
	Class  AssetClass
	Symbol Symbol
}

func NewEquity(sym Symbol) Instrument { return Instrument{Class: Equity, Symbol: sym} }
func NewFuture(sym Symbol) Instrument { return Instrument{Class: Future, Symbol: sym} }
func NewOption(sym Symbol) Instrument { return Instrument{Class: Option, Symbol: sym} }

func (i Instrument) String() string { return string(i.Symbol) }

var (
	ErrBadTickerFormat = errors.New("ticker is in an incorrect format")

	monthNumbers = map[string]int{
		"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
		"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
	}
)

// UnderlyingEquity resolves an option symbol to its cash underlying.
// This is a pure function of the symbol prefix.
func UnderlyingEquity(opt Symbol) (Symbol, error) {
	prefix, _, found := strings.Cut(string(opt), "_")
	if !found {
		return "", fmt.Errorf("%w: %s", ErrBadTickerFormat, opt)
	}

	for _, eq := range Equities {
		if eq == Symbol(prefix) {
			return eq, nil
		}
	}

	return "", fmt.Errorf("extracted ticker %s not found in list of equities", prefix)
}

// YearsToExpiry parses the month token out of a future or option symbol
// and converts the distance to the current month into years. The expiry
// year is ignored so stale symbol sets never expire mid-run; the
// minimum distance is one month.
func YearsToExpiry(sym Symbol) (float64, error) {
	parts := strings.Split(string(sym), "_")
	if len(parts) < 2 || len(parts[1]) < 5 {
		return 0, fmt.Errorf("%w: %s", ErrBadTickerFormat, sym)
	}

	expiryMonth, ok := monthNumbers[parts[1][:3]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown month in %s", ErrBadTickerFormat, sym)
	}

	months := expiryMonth - int(time.Now().Month())
	if months < 0 {
		months = -months
	}
	if months == 0 {
		months = 1
	}

	return float64(months) / 12.0, nil
}
