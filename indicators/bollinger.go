package indicators

import (
	"fmt"
	"math"
)

// Bands holds the three Bollinger band levels plus the derived width.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
}

// Bollinger calculates Bollinger bands over the last period closes:
// middle is the SMA, upper/lower sit stdDev population standard
// deviations away.
func Bollinger(closes []float64, period int, stdDev float64) (Bands, error) {
	sma, err := SMA(closes, period)
	if err != nil {
		return Bands{}, fmt.Errorf("bollinger: %w", err)
	}

	variance := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - sma
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))

	b := Bands{
		Upper:  sma + stdDev*std,
		Middle: sma,
		Lower:  sma - stdDev*std,
	}
	b.Width = b.Upper - b.Lower
	return b, nil
}
