package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/quant/signal"
)

// barsPerYear annualizes the Sharpe ratio on a daily basis.
const barsPerYear = 252

// Report summarizes one run. All percentages are in percent, not
// fractions; MaxDrawdownPct is never positive.
type Report struct {
	TotalReturnPct      float64
	AnnualizedReturnPct float64
	SharpeRatio         float64
	MaxDrawdownPct      float64
	TotalTrades         int
	RoundTrips          int
	WinningTrips        int
	WinRatePct          float64
	AvgTripReturnPct    float64
}

// RoundTrip pairs one buy with the next sell. Position size differences
// between the legs are ignored; the trip return is price-based.
type RoundTrip struct {
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	ReturnPct  float64
}

// ComputeReport derives performance statistics from an equity curve and
// its trades. It is pure: same inputs, same report.
func ComputeReport(initialCapital float64, states []PortfolioState, trades []Trade) Report {
	r := Report{TotalTrades: len(trades)}
	if initialCapital <= 0 || len(states) == 0 {
		return r
	}

	final := states[len(states)-1].TotalValue
	r.TotalReturnPct = (final/initialCapital - 1) * 100
	r.AnnualizedReturnPct = annualize(r.TotalReturnPct, states[0].Time, states[len(states)-1].Time)
	r.SharpeRatio = sharpe(returns(states))
	r.MaxDrawdownPct = maxDrawdown(states)

	trips := RoundTrips(trades)
	r.RoundTrips = len(trips)
	for _, trip := range trips {
		if trip.ReturnPct > 0 {
			r.WinningTrips++
		}
		r.AvgTripReturnPct += trip.ReturnPct
	}
	if len(trips) > 0 {
		r.WinRatePct = float64(r.WinningTrips) / float64(len(trips)) * 100
		r.AvgTripReturnPct /= float64(len(trips))
	}
	return r
}

// RoundTrips pairs each buy with the next sell, in order. A trailing
// buy with no matching sell is an open position, not a completed trip.
func RoundTrips(trades []Trade) []RoundTrip {
	var trips []RoundTrip
	var entry *Trade
	for i := range trades {
		t := trades[i]
		switch {
		case t.Side == signal.Buy && entry == nil:
			entry = &trades[i]
		case t.Side == signal.Sell && entry != nil:
			trips = append(trips, RoundTrip{
				EntryTime:  entry.Time,
				ExitTime:   t.Time,
				EntryPrice: entry.Price,
				ExitPrice:  t.Price,
				ReturnPct:  (t.Price/entry.Price - 1) * 100,
			})
			entry = nil
		}
	}
	return trips
}

// returns is the bar-to-bar percentage change of total value.
func returns(states []PortfolioState) []float64 {
	if len(states) < 2 {
		return nil
	}
	out := make([]float64, 0, len(states)-1)
	for i := 1; i < len(states); i++ {
		prev := states[i-1].TotalValue
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, states[i].TotalValue/prev-1)
	}
	return out
}

// annualize scales a total return to a yearly rate by the elapsed
// calendar time. Returns 0 when the curve spans no measurable time.
func annualize(totalReturnPct float64, first, last time.Time) float64 {
	days := last.Sub(first).Hours() / 24
	if days <= 0 {
		return 0
	}
	growth := 1 + totalReturnPct/100
	if growth <= 0 {
		return -100
	}
	return (math.Pow(growth, 365/days) - 1) * 100
}

// sharpe is the annualized mean/stddev of the return series, zero risk-
// free rate. The stddev is the sample estimate (n-1 denominator).
// Fewer than two returns or zero variance yields 0.
func sharpe(rets []float64) float64 {
	if len(rets) < 2 {
		return 0
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	var variance float64
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets) - 1)
	if variance == 0 {
		return 0
	}
	return math.Sqrt(barsPerYear) * mean / math.Sqrt(variance)
}

// maxDrawdown is the deepest peak-to-trough drop of the equity curve,
// as a non-positive percentage.
func maxDrawdown(states []PortfolioState) float64 {
	var dd float64
	peak := states[0].TotalValue
	for _, s := range states {
		if s.TotalValue > peak {
			peak = s.TotalValue
		}
		if peak > 0 {
			if d := (s.TotalValue/peak - 1) * 100; d < dd {
				dd = d
			}
		}
	}
	return dd
}
