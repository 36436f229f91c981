// Package indicator holds the numeric primitives shared by all strategies.
//
// Every function returns a slice of the same length as its input: index i of
// the output corresponds to index i of the input candle series. Positions that
// are not defined yet (warm-up) hold NaN.
package indicator

import "math"

// NaN - значение для позиций прогрева.
var NaN = math.NaN()

// Defined сообщает, что значение посчитано (не прогрев).
func Defined(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// RSIWilder - классический RSI с сглаживанием Уайлдера.
//
// Indices 0..period-1 are NaN. Index period is seeded with the simple mean of
// the first period deltas, later values use avg = (prev*(period-1) + x)/period.
// A zero average loss saturates the value at 100.
func RSIWilder(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period < 1 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain += g
		avgLoss += l
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func gainLoss(delta float64) (float64, float64) {
	switch {
	case delta > 0:
		return delta, 0
	case delta < 0:
		return 0, -delta
	default:
		return 0, 0
	}
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA - экспоненциальная средняя, alpha = 2/(period+1).
// Leading NaN values are skipped; the average is seeded with the first defined
// value and stays NaN before it.
func EMA(series []float64, period int) []float64 {
	out := nanSeries(len(series))
	if period < 1 {
		period = 1
	}
	alpha := 2.0 / (float64(period) + 1)

	seeded := false
	var value float64
	for i, x := range series {
		if !Defined(x) {
			if seeded {
				out[i] = value
			}
			continue
		}
		if !seeded {
			value = x
			seeded = true
		} else {
			value = alpha*x + (1-alpha)*value
		}
		out[i] = value
	}
	return out
}

// SMA - простая скользящая средняя по окну window.
// A position is NaN until the window holds window defined samples.
func SMA(series []float64, window int) []float64 {
	out := nanSeries(len(series))
	if window < 1 || len(series) < window {
		return out
	}

	var sum float64
	undefined := 0
	for i, x := range series {
		if Defined(x) {
			sum += x
		} else {
			undefined++
		}
		if i >= window {
			old := series[i-window]
			if Defined(old) {
				sum -= old
			} else {
				undefined--
			}
		}
		if i >= window-1 && undefined == 0 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// Sub возвращает a[i]-b[i]; NaN, если одна из сторон не определена.
func Sub(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if Defined(a[i]) && Defined(b[i]) {
			out[i] = a[i] - b[i]
		}
	}
	return out
}

// Shift добавляет константу ко всем определённым значениям.
func Shift(series []float64, delta float64) []float64 {
	out := nanSeries(len(series))
	for i, x := range series {
		if Defined(x) {
			out[i] = x + delta
		}
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	line = Sub(EMA(closes, fast), EMA(closes, slow))
	sig = EMA(line, signal)
	hist = Sub(line, sig)
	return line, sig, hist
}

// Round округляет до places знаков; NaN остаётся NaN.
func Round(v float64, places int) float64 {
	if !Defined(v) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Last возвращает последний элемент или NaN для пустого ряда.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return NaN
	}
	return series[len(series)-1]
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NaN
	}
	return out
}
