package pricing

import (
	"math/rand"

	"github.com/JamieWells1/solstice/internal/common"
)

func randomFloat(min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	return min + rand.Float64()*(max-min)
}

// randomInt draws uniformly from [min, max] inclusive.
func randomInt(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + rand.Intn(max-min+1)
}

func RandomSide() common.MarketSide {
	if rand.Intn(2) == 0 {
		return common.Bid
	}
	return common.Ask
}

func RandomPrice(min, max float64) float64 { return randomFloat(min, max) }

func RandomQnty(min, max int) int { return randomInt(min, max) }
