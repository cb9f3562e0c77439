package math

import (
	"math"
)

// TradingDaysPerYear is the factor used to annualise daily risk figures
const TradingDaysPerYear = 252

// ArithmeticAverage is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumOfValues float64
	for x := range values {
		sumOfValues += values[x]
	}
	return sumOfValues / float64(len(values))
}

// PopulationVariance calculates variance using population based calculation
func PopulationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := ArithmeticAverage(values)
	diffs := make([]float64, len(values))
	for x := range values {
		diffs[x] = math.Pow(values[x]-avg, 2)
	}
	return ArithmeticAverage(diffs)
}

// PopulationStandardDeviation calculates standard deviation using population
// based calculation
func PopulationStandardDeviation(values []float64) float64 {
	return math.Sqrt(PopulationVariance(values))
}

// PopulationCovariance calculates covariance between two equal length series
// using population based calculation
func PopulationCovariance(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	avgA := ArithmeticAverage(a)
	avgB := ArithmeticAverage(b)
	var sum float64
	for x := range a {
		sum += (a[x] - avgA) * (b[x] - avgB)
	}
	return sum / float64(len(a))
}

// CalculateReturns converts a sequence of portfolio values into per-period
// rates of return
func CalculateReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, len(values)-1)
	for x := 0; x < len(values)-1; x++ {
		returns[x] = values[x+1]/values[x] - 1
	}
	return returns
}

// CalculateSharpeRatio returns the annualised sharpe ratio of a sequence of
// per-period returns
func CalculateSharpeRatio(returns []float64) float64 {
	if len(returns) <= 1 {
		return 0
	}
	standardDeviation := PopulationStandardDeviation(returns)
	if standardDeviation == 0 {
		return 0
	}
	return ArithmeticAverage(returns) / standardDeviation * math.Sqrt(TradingDaysPerYear)
}

// CalculateBeta returns the covariance of returns against the benchmark over
// the benchmark's variance
func CalculateBeta(returns, benchmarkReturns []float64) float64 {
	variance := PopulationVariance(benchmarkReturns)
	if variance == 0 {
		return 0
	}
	return PopulationCovariance(benchmarkReturns, returns) / variance
}

// CalculateAlpha returns the annualised excess return over what the beta
// exposure to the benchmark would have produced
func CalculateAlpha(returns, benchmarkReturns []float64, beta float64) float64 {
	return (ArithmeticAverage(returns) - beta*ArithmeticAverage(benchmarkReturns)) *
		math.Sqrt(TradingDaysPerYear)
}

// CalculateMaxDrawdown returns the worst peak-to-trough decline of a value
// sequence, expressed as a negative fraction of the running peak
func CalculateMaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	var drawdown float64
	for x := range values {
		if peak > 0 {
			drawdown = math.Min(values[x]/peak-1, drawdown)
		}
		peak = math.Max(peak, values[x])
	}
	return drawdown
}
