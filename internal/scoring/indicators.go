package scoring

import "math"

// SMA returns the simple moving average of the last window values.
// When fewer values are available it averages what exists, so a 180-bar
// series still yields a 200-day MA estimate instead of an error.
func SMA(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if window > len(values) {
		window = len(values)
	}

	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window)
}

// dailyReturns returns simple day-over-day returns for the last window bars.
// Bars with a zero previous close are skipped.
func dailyReturns(closes []float64, window int) []float64 {
	if len(closes) < 2 {
		return nil
	}

	start := len(closes) - window - 1
	if start < 0 {
		start = 0
	}

	returns := make([]float64, 0, len(closes)-start-1)
	for i := start + 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			continue
		}
		returns = append(returns, closes[i]/prev-1)
	}
	return returns
}

// logReturns returns daily log returns for the last window bars.
func logReturns(closes []float64, window int) []float64 {
	if len(closes) < 2 {
		return nil
	}

	start := len(closes) - window - 1
	if start < 0 {
		start = 0
	}

	returns := make([]float64, 0, len(closes)-start-1)
	for i := start + 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	return returns
}

// stddev returns the sample standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)

	return math.Sqrt(variance)
}

// AnnualizedVolatility is the annualized standard deviation of daily log
// returns over the last window bars.
func AnnualizedVolatility(closes []float64, window int) float64 {
	return stddev(logReturns(closes, window)) * math.Sqrt(tradingDaysPerYear)
}

// meanVolume averages volume over the last window bars.
func meanVolume(volumes []int64, window int) float64 {
	if len(volumes) == 0 {
		return 0
	}
	if window > len(volumes) {
		window = len(volumes)
	}

	var sum int64
	for _, v := range volumes[len(volumes)-window:] {
		sum += v
	}
	return float64(sum) / float64(window)
}
