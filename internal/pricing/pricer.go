package pricing

import (
	"fmt"
	"math"

	"github.com/JamieWells1/solstice/internal/common"
	"github.com/JamieWells1/solstice/internal/instrument"
)

// risk-free rate for derivatives pricing
const riskFreeRate = 0.05

const baseOrderValue = 10000

// quoteStyle is where a synthesised order lands relative to the
// standing quotes.
type quoteStyle int

const (
	crossSpread quoteStyle = iota
	insideSpread
	atSpread
)

const (
	crossSpreadProb  = 0.3
	insideSpreadProb = 0.2
)

// equity pricing calc constants
const (
	equityInitialSpreadPct  = 0.002  // 0.2% initial spread
	equityBaseSpreadPct     = 0.002  // base spread width
	equityVolSpreadMul      = 0.0015 // volatility impact on spread
	equitySpreadWeight      = 0.95   // current spread weight in adjustment
	equityTargetWeight      = 0.05   // target spread weight in adjustment
	equityMinExecsForSpread = 10     // min executions before spread calculation
	equityDriftPct          = 0.025  // ±2.5% transient price drift
)

// future pricing calc constants
const (
	futureInitialSpreadPct = 0.01  // 1% initial spread
	futureBaseSpreadPct    = 0.005 // 0.5% base spread
	futureVolSpreadMul     = 0.01  // volatility impact on spread
)

// price calc constants
const (
	insideSpreadShiftFactor = 0.5 // 50% of half-spread for shift
	insideSpreadRangeFactor = 0.3 // 30% of half-spread as range
	crossSpreadOffsetFactor = 0.5 // 50% of half-spread for offset
)

// quantity calc constants
const (
	minDemandScale   = 0.3
	maxDemandScale   = 0.7
	maxVolAdjustment = 0.5
	minQntyThreshold = 10
	minOrderQnty     = 1
)

// OrderData is everything the pricer decides about a synthesised cash
// order: which side it lands on, its limit price and quantity.
type OrderData struct {
	Instrument instrument.Instrument
	Side       common.MarketSide
	Price      float64
	Qnty       int
}

// Pricer synthesises order attributes from per-symbol market state and
// folds match outcomes back into it. It dispatches on the asset class
// tag; options route through ComputeOptionData.
type Pricer struct {
	store *Store
}

func NewPricer(store *Store) *Pricer {
	return &Pricer{store: store}
}

func (p *Pricer) Store() *Store { return p.store }

// ComputeOrderData synthesises side, price and quantity for an equity
// or future order from its current market statistics.
func (p *Pricer) ComputeOrderData(inst instrument.Instrument) (OrderData, error) {
	if inst.Class == instrument.Option {
		return OrderData{}, fmt.Errorf("ComputeOrderData is not appropriate for options, use ComputeOptionData")
	}

	data, err := p.store.Get(inst)
	if err != nil {
		return OrderData{}, err
	}

	side := p.marketSide(data)

	var price float64
	switch inst.Class {
	case instrument.Equity:
		price = p.equityMarketPrice(data, side)
	case instrument.Future:
		price, err = p.futureMarketPrice(inst, data, side)
		if err != nil {
			return OrderData{}, err
		}
	}

	return OrderData{
		Instrument: inst,
		Side:       side,
		Price:      price,
		Qnty:       p.quantity(data, price),
	}, nil
}

// marketSide draws u from (−1, 1): Bid when u lands in (0, df²), Ask
// when it lands in (−df², 0), otherwise a fair coin. Both bands are
// equally wide, so either side is equally likely whatever the demand
// factor.
func (p *Pricer) marketSide(data *PriceData) common.MarketSide {
	prob := data.demandFactor * data.demandFactor
	u := randomFloat(-1, 1)

	if u > 0 && u < prob {
		return common.Bid
	}
	if u < 0 && u > -prob {
		return common.Ask
	}

	return RandomSide()
}

func (p *Pricer) quoteStyle() quoteStyle {
	u := randomFloat(0, 1)

	switch {
	case u < crossSpreadProb:
		return crossSpread
	case u < crossSpreadProb+insideSpreadProb:
		return insideSpread
	default:
		return atSpread
	}
}

// marketPriceImpl draws the limit price relative to the standing
// quotes. The inside-spread target shifts with the signed demand
// factor; the cross-spread depth grows with its magnitude on either
// side.
func (p *Pricer) marketPriceImpl(side common.MarketSide, lowestAsk, highestBid, demandFactor float64) float64 {
	style := p.quoteStyle()

	spread := lowestAsk - highestBid
	mid := (lowestAsk + highestBid) / 2
	half := mid - highestBid

	var price float64

	if side == common.Bid {
		switch style {
		case insideSpread:
			if spread > 0 {
				target := mid + half*demandFactor*insideSpreadShiftFactor
				span := half * insideSpreadRangeFactor
				lower := math.Max(highestBid, target-span)
				upper := math.Min(lowestAsk, target+span)
				price = randomFloat(lower, upper)
			} else {
				price = highestBid
			}
		case crossSpread:
			if spread > 0 {
				offset := half * math.Abs(demandFactor) * crossSpreadOffsetFactor
				price = randomFloat(lowestAsk, lowestAsk+offset)
			} else {
				price = lowestAsk
			}
		case atSpread:
			price = highestBid
		}
	} else {
		switch style {
		case insideSpread:
			if spread > 0 {
				target := mid + half*demandFactor*insideSpreadShiftFactor
				span := half * insideSpreadRangeFactor
				lower := math.Max(highestBid, target-span)
				upper := math.Min(lowestAsk, target+span)
				price = randomFloat(lower, upper)
			} else {
				price = lowestAsk
			}
		case crossSpread:
			if spread > 0 {
				offset := half * math.Abs(demandFactor) * crossSpreadOffsetFactor
				price = randomFloat(math.Max(1.0, highestBid-offset), highestBid)
			} else {
				price = highestBid
			}
		case atSpread:
			price = lowestAsk
		}
	}

	return math.Max(1.0, price)
}

// equityMarketPrice maintains the stored spread before drawing: widen
// around the seed price while uninitialised, then once enough
// executions exist pull the quotes toward a moving-average-anchored
// target width, then apply a transient drift to each side.
func (p *Pricer) equityMarketPrice(data *PriceData, side common.MarketSide) float64 {
	if data.highestBid == 0.0 && data.lowestAsk == 0.0 {
		spreadWidth := data.lastPrice * equityInitialSpreadPct
		data.highestBid = data.lastPrice - spreadWidth/2
		data.lowestAsk = data.lastPrice + spreadWidth/2
	} else if data.executions >= equityMinExecsForSpread {
		basePrice := data.movingAverage
		sigma := data.StandardDeviation()

		spreadWidth := basePrice * (equityBaseSpreadPct + sigma*equityVolSpreadMul)
		targetBid := basePrice - spreadWidth/2
		targetAsk := basePrice + spreadWidth/2

		data.highestBid = data.highestBid*equitySpreadWeight + targetBid*equityTargetWeight
		data.lowestAsk = data.lowestAsk*equitySpreadWeight + targetAsk*equityTargetWeight
	}

	adjustedBid := data.highestBid * (1.0 + randomFloat(-equityDriftPct, equityDriftPct))
	adjustedAsk := data.lowestAsk * (1.0 + randomFloat(-equityDriftPct, equityDriftPct))

	return p.marketPriceImpl(side, adjustedAsk, adjustedBid, data.demandFactor)
}

// futureMarketPrice rebuilds both quotes around the moving average and
// shifts them by the cost of carry, spot·(e^{rT}−1).
func (p *Pricer) futureMarketPrice(inst instrument.Instrument, data *PriceData, side common.MarketSide) (float64, error) {
	basePrice := data.lastPrice
	if data.executions > 0 {
		basePrice = data.movingAverage
	}

	var spreadWidth float64
	if data.executions > 1 {
		spreadWidth = basePrice * (futureBaseSpreadPct + data.StandardDeviation()*futureVolSpreadMul)
	} else {
		spreadWidth = basePrice * futureInitialSpreadPct
	}

	data.highestBid = basePrice - spreadWidth/2
	data.lowestAsk = basePrice + spreadWidth/2

	expiry, err := instrument.YearsToExpiry(inst.Symbol)
	if err != nil {
		return 0, err
	}

	carry := data.lastPrice*math.Exp(riskFreeRate*expiry) - data.lastPrice

	return p.marketPriceImpl(side, data.lowestAsk+carry, data.highestBid+carry, data.demandFactor), nil
}

// quantity scales order size to the demand factor and damps it by
// price and volatility, capping the notional around baseOrderValue.
func (p *Pricer) quantity(data *PriceData, price float64) int {
	demandScale := minDemandScale + maxDemandScale*math.Abs(data.demandFactor)

	var sigma float64
	if data.executions > 1 {
		sigma = data.StandardDeviation()
	}
	volAdjustment := math.Min(sigma, maxVolAdjustment)

	maxQnty := int(baseOrderValue * demandScale / (price * (1 + volAdjustment)))
	if maxQnty < minQntyThreshold {
		return randomInt(minOrderQnty, minQntyThreshold)
	}

	return randomInt(minOrderQnty, maxQnty)
}

// updatedDemandFactor nudges the factor with noise, corrects it when
// the last price has drifted more than 1.5σ from the moving average,
// and mean-reverts it toward zero before clamping to [−1, 1].
func (p *Pricer) updatedDemandFactor(data *PriceData) float64 {
	if data.executions < 2 {
		return randomFloat(-0.3, 0.3)
	}

	df := data.demandFactor + randomFloat(-0.05, 0.05)
	sigma := data.StandardDeviation()
	deviation := data.lastPrice - data.movingAverage

	// price too high
	if deviation > 1.5*sigma {
		df -= 0.15
	}
	// price too low
	if deviation < -1.5*sigma {
		df += 0.15
	}

	df *= 0.95

	return math.Max(-1.0, math.Min(1.0, df))
}

// Update folds one processed order back into its instrument's
// statistics. Called exactly once per order, under the same lock that
// guarded the match.
func (p *Pricer) Update(order *common.Order) error {
	data, err := p.store.Get(order.Instrument())
	if err != nil {
		return err
	}

	isBid := order.Side() == common.Bid

	if !order.Matched() {
		// An unmatched order can still improve the standing quotes.
		price := order.Price()
		if isBid && (data.highestBid == 0 || data.highestBid < price) {
			data.highestBid = price
		}
		if !isBid && (data.lowestAsk == 0 || data.lowestAsk > price) {
			data.lowestAsk = price
		}
		return nil
	}

	matchedPrice := order.MatchedPrice()

	if isBid && (data.highestBid == 0 || data.highestBid < matchedPrice) {
		data.highestBid = matchedPrice
	}
	if !isBid && (data.lowestAsk == 0 || data.lowestAsk > matchedPrice) {
		data.lowestAsk = matchedPrice
	}

	data.lastPrice = matchedPrice
	data.UpdateVolatility(matchedPrice)

	if data.executions >= equityMinExecsForSpread {
		data.pricesSum += matchedPrice
		data.pricesSumSquared += matchedPrice * matchedPrice

		// Slide the moving average in O(1).
		n := min(data.executions, maRange)
		data.movingAverage = (data.movingAverage*float64(n) + matchedPrice) / float64(n+1)
	} else if data.executions == 0 {
		data.movingAverage = matchedPrice
	}

	data.executions++
	data.demandFactor = p.updatedDemandFactor(data)

	return nil
}
