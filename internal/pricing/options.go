package pricing

import (
	"math"

	"github.com/JamieWells1/solstice/internal/common"
	"github.com/JamieWells1/solstice/internal/instrument"
)

// moneyness band probabilities, out of 100
const (
	itmBandCeiling = 25 // 1-25: in the money
	otmBandCeiling = 95 // 26-95: out of the money, rest at the money
)

const strikeBandPctOfSpot = 0.01

// OptionData is everything the pricer decides about a synthesised
// option order, including the creation-time details stamped onto it.
type OptionData struct {
	Instrument instrument.Instrument
	Side       common.MarketSide
	Price      float64
	Qnty       int
	Details    common.OptionDetails
}

// cumulativeNormal is N(x), the standard normal CDF.
func cumulativeNormal(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normalDensity is n(x), the standard normal PDF.
func normalDensity(x float64) float64 {
	return (1.0 / math.Sqrt(2.0*math.Pi)) * math.Exp(-x*x/2.0)
}

// bandIncrement is the standard strike increment for a given spot:
// exactly 1% of spot, floored at 10 cents, rounded to the nearest 10
// cents below 50 cents and to the nearest 50 cents above.
func bandIncrement(spot float64) float64 {
	exact := strikeBandPctOfSpot * spot

	switch {
	case exact < 0.1:
		return 0.1
	case exact <= 0.5:
		return math.Max(0.1, math.Round(exact/0.1)*0.1)
	default:
		return math.Round(exact/0.5) * 0.5
	}
}

// strike draws a moneyness band, picks a strike within a 1-15% window
// of spot on the band's side, and snaps it to the standard increment.
func (p *Pricer) strike(optType common.OptionType, spot float64) float64 {
	moneyCall := randomInt(1, 100)

	var lower, upper float64

	if optType == common.Call {
		switch {
		case moneyCall <= itmBandCeiling:
			lower, upper = spot-0.15*spot, spot-0.01*spot
		case moneyCall <= otmBandCeiling:
			lower, upper = spot+0.01*spot, spot+0.15*spot
		default:
			lower, upper = spot-0.005*spot, spot+0.005*spot
		}
	} else {
		switch {
		case moneyCall <= itmBandCeiling:
			lower, upper = spot+0.01*spot, spot+0.15*spot
		case moneyCall <= otmBandCeiling:
			lower, upper = spot-0.15*spot, spot-0.01*spot
		default:
			lower, upper = spot-0.005*spot, spot+0.005*spot
		}
	}

	increment := bandIncrement(spot)
	strike := math.Round(randomFloat(lower, upper)/increment) * increment

	return math.Max(increment, strike)
}

// blackScholes prices a European option off the underlying's spot and
// annualised EWMA volatility.
func blackScholes(optType common.OptionType, spot, strike, sigma, expiry float64) float64 {
	d1 := (math.Log(spot/strike) + (riskFreeRate+sigma*sigma/2)*expiry) / (sigma * math.Sqrt(expiry))
	d2 := d1 - sigma*math.Sqrt(expiry)

	if optType == common.Call {
		return spot*cumulativeNormal(d1) - strike*math.Exp(-riskFreeRate*expiry)*cumulativeNormal(d2)
	}
	return strike*math.Exp(-riskFreeRate*expiry)*(1-cumulativeNormal(d2)) - spot*(1-cumulativeNormal(d1))
}

// greeks evaluates the Black-Scholes sensitivities at the same point
// the valuation used.
func greeks(optType common.OptionType, spot, strike, sigma, expiry float64) common.Greeks {
	d1 := (math.Log(spot/strike) + (riskFreeRate+sigma*sigma/2.0)*expiry) / (sigma * math.Sqrt(expiry))
	d2 := d1 - sigma*math.Sqrt(expiry)

	nd1 := normalDensity(d1)
	Nd1 := cumulativeNormal(d1)
	Nd2 := cumulativeNormal(d2)

	var delta, theta float64
	if optType == common.Call {
		delta = Nd1
		theta = -(spot*nd1*sigma)/(2.0*math.Sqrt(expiry)) - riskFreeRate*strike*math.Exp(-riskFreeRate*expiry)*Nd2
	} else {
		delta = Nd1 - 1.0
		theta = -(spot*nd1*sigma)/(2.0*math.Sqrt(expiry)) + riskFreeRate*strike*math.Exp(-riskFreeRate*expiry)*(1.0-Nd2)
	}

	return common.Greeks{
		Delta: delta,
		Gamma: nd1 / (spot * sigma * math.Sqrt(expiry)),
		Theta: theta,
		Vega:  spot * math.Sqrt(expiry) * nd1,
	}
}

// ComputeOptionData synthesises a full option order: strike from the
// moneyness bands, a Black-Scholes theoretical value off the
// underlying equity, a market price drawn around that value the same
// way equity quotes are drawn, and the creation-time Greeks.
func (p *Pricer) ComputeOptionData(inst instrument.Instrument) (OptionData, error) {
	underlyingSym, err := instrument.UnderlyingEquity(inst.Symbol)
	if err != nil {
		return OptionData{}, err
	}

	equityData, err := p.store.Get(instrument.NewEquity(underlyingSym))
	if err != nil {
		return OptionData{}, err
	}

	optionData, err := p.store.Get(inst)
	if err != nil {
		return OptionData{}, err
	}

	optType, err := common.OptionTypeFromSymbol(inst.Symbol)
	if err != nil {
		return OptionData{}, err
	}

	expiry, err := instrument.YearsToExpiry(inst.Symbol)
	if err != nil {
		return OptionData{}, err
	}

	spot := equityData.lastPrice
	sigma := equityData.Volatility()
	strike := p.strike(optType, spot)
	theoretical := blackScholes(optType, spot, strike, sigma, expiry)

	side := p.marketSide(optionData)
	price := p.optionMarketPrice(optionData, theoretical, side)

	return OptionData{
		Instrument: inst,
		Side:       side,
		Price:      price,
		Qnty:       p.quantity(optionData, price),
		Details: common.OptionDetails{
			UnderlyingEquity: underlyingSym,
			Strike:           strike,
			Type:             optType,
			Expiry:           expiry,
			Greeks:           greeks(optType, spot, strike, sigma, expiry),
		},
	}, nil
}

// optionMarketPrice draws the option's limit price around its
// theoretical value in the same shape as the equity path: seed the
// spread off the theoretical price while uninitialised, later pull the
// quotes toward a moving-average target, then drift both sides.
func (p *Pricer) optionMarketPrice(data *PriceData, theoretical float64, side common.MarketSide) float64 {
	anchor := math.Max(1.0, theoretical)

	if data.highestBid == 0.0 && data.lowestAsk == 0.0 {
		spreadWidth := anchor * equityInitialSpreadPct
		data.highestBid = anchor - spreadWidth/2
		data.lowestAsk = anchor + spreadWidth/2
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
