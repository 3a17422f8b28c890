package pricing

import (
	"github.com/JamieWells1/solstice/internal/common"
	"github.com/JamieWells1/solstice/internal/instrument"
)

const daysPerYear = 365.0

// RandomOrderValues draws uniform order attributes from the configured
// bounds. This is the pricer-less generation mode: no market state is
// consulted and none is produced.
func RandomOrderValues(minPrice, maxPrice float64, minQnty, maxQnty int) (price float64, qnty int, side common.MarketSide) {
	return randomFloat(minPrice, maxPrice), randomInt(minQnty, maxQnty), RandomSide()
}

// RandomOptionDetails draws option attributes for the pricer-less
// mode. The Greeks only keep their sign conventions; they are not a
// valuation.
func RandomOptionDetails(sym instrument.Symbol, minPrice, maxPrice float64, minExpiryDays, maxExpiryDays int) (common.OptionDetails, error) {
	underlying, err := instrument.UnderlyingEquity(sym)
	if err != nil {
		return common.OptionDetails{}, err
	}

	optType, err := common.OptionTypeFromSymbol(sym)
	if err != nil {
		return common.OptionDetails{}, err
	}

	delta := randomFloat(0, 1)
	if optType == common.Put {
		delta = randomFloat(-1, 0)
	}

	return common.OptionDetails{
		UnderlyingEquity: underlying,
		Strike:           randomFloat(minPrice, maxPrice),
		Type:             optType,
		Expiry:           float64(randomInt(minExpiryDays, maxExpiryDays)) / daysPerYear,
		Greeks: common.Greeks{
			Delta: delta,
			Gamma: randomFloat(0, 0.1),
			Theta: randomFloat(-1, 0),
			Vega:  randomFloat(0, 50),
		},
	}, nil
}
