package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/JamieWells1/solstice/internal/instrument"
)

var ErrMissingPriceData = errors.New("no price data for symbol")

const (
	maRange    = 10
	ewmaLambda = 0.94 // EWMA decay factor (~30-day window)

	seedPriceMin = 10.0
	seedPriceMax = 200.0
)

// PriceData carries the running per-instrument statistics the pricer
// both reads (to synthesise orders) and writes (to fold match outcomes
// back in). It is only ever touched under the instrument's lock.
type PriceData struct {
	inst instrument.Instrument

	lastPrice     float64
	highestBid    float64
	lowestAsk     float64
	demandFactor  float64
	movingAverage float64

	executions       int
	pricesSum        float64
	pricesSumSquared float64

	// EWMA volatility tracking
	previousPrice float64
	varianceEWMA  float64
}

func newPriceData(inst instrument.Instrument) *PriceData {
	seed := randomFloat(seedPriceMin, seedPriceMax)
	return &PriceData{
		inst:          inst,
		lastPrice:     seed,
		movingAverage: seed,
		demandFactor:  randomFloat(-1, 1),
		varianceEWMA:  0.0001, // small initial variance
	}
}

func (d *PriceData) Instrument() instrument.Instrument { return d.inst }
func (d *PriceData) LastPrice() float64 { return d.lastPrice }
func (d *PriceData) HighestBid() float64 { return d.highestBid }
func (d *PriceData) LowestAsk() float64 { return d.lowestAsk }
func (d *PriceData) DemandFactor() float64 { return d.demandFactor }
func (d *PriceData) MovingAverage() float64 { return d.movingAverage }
func (d *PriceData) Executions() int { return d.executions }
func (d *PriceData) PricesSum() float64 { return d.pricesSum }
func (d *PriceData) PricesSumSquared() float64 { return d.pricesSumSquared }

// StandardDeviation is the population deviation over every matched
// price folded into the running sums.
func (d *PriceData) StandardDeviation() float64 {
	n := float64(d.executions)
	if n < 2 {
		return 0
	}

	return math.Sqrt((d.pricesSumSquared / n) - math.Pow(d.pricesSum/n, 2))
}

// UpdateVolatility folds a matched price into the EWMA variance of log
// returns: var' = λ·var + (1−λ)·logReturn².
func (d *PriceData) UpdateVolatility(newPrice float64) {
	if d.previousPrice == 0.0 {
		d.previousPrice = newPrice
		return
	}

	logReturn := math.Log(newPrice / d.previousPrice)
	d.varianceEWMA = ewmaLambda*d.varianceEWMA + (1.0-ewmaLambda)*logReturn*logReturn
	d.previousPrice = newPrice
}

// Volatility annualises the EWMA variance over 252 trading days.
func (d *PriceData) Volatility() float64 {
	return math.Sqrt(d.varianceEWMA * 252.0)
}

// Store holds PriceData for every instrument in the active pools. It is
// populated single-threaded at startup; afterwards entries are mutated
// only under the owning instrument's lock.
type Store struct {
	data map[instrument.Instrument]*PriceData
}

func NewStore() *Store {
	return &Store{data: make(map[instrument.Instrument]*PriceData)}
}

// Init seeds price data for every pool member. Symbols already present
// keep their state.
func (s *Store) Init(class instrument.AssetClass, pool []instrument.Symbol) {
	for _, sym := range pool {
		inst := instrument.Instrument{Class: class, Symbol: sym}
		if _, ok := s.data[inst]; !ok {
			s.data[inst] = newPriceData(inst)
		}
	}
}

func (s *Store) Get(inst instrument.Instrument) (*PriceData, error) {
	data, ok := s.data[inst]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPriceData, inst)
	}
	return data, nil
}
