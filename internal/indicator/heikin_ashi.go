package indicator

// HARSI - свечи Heikin-Ashi, построенные по RSI, центрированному в нуле.
type HARSI struct {
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64
}

// HeikinAshiRSI converts the high/low/close series into zero-centred RSI
// candles (RSI(x) - 50) and applies the Heikin-Ashi transform to them.
//
// The RSI open is the previous RSI close; the HA open is smoothed as
// (prevOpen*smooth + prevClose)/(smooth+1) once a previous candle exists.
func HeikinAshiRSI(high, low, closes []float64, length, smooth int) HARSI {
	n := len(closes)
	zHigh := Shift(RSIWilder(high, length), -50)
	zLow := Shift(RSIWilder(low, length), -50)
	zClose := Shift(RSIWilder(closes, length), -50)

	out := HARSI{
		Open:  nanSeries(n),
		High:  nanSeries(n),
		Low:   nanSeries(n),
		Close: nanSeries(n),
	}

	s := float64(smooth)
	seeded := false
	for i := 0; i < n; i++ {
		if i >= len(zHigh) || i >= len(zLow) {
			break
		}
		if !Defined(zClose[i]) || !Defined(zHigh[i]) || !Defined(zLow[i]) {
			continue
		}

		openRSI := zClose[i]
		if i > 0 && Defined(zClose[i-1]) {
			openRSI = zClose[i-1]
		}
		rMax := max(zHigh[i], zLow[i])
		rMin := min(zHigh[i], zLow[i])

		haClose := (openRSI + rMax + rMin + zClose[i]) / 4

		var haOpen float64
		if seeded && Defined(out.Close[i-1]) {
			haOpen = (out.Open[i-1]*s + out.Close[i-1]) / (s + 1)
		} else {
			haOpen = (openRSI + zClose[i]) / 2
		}
		seeded = true

		out.Open[i] = haOpen
		out.Close[i] = haClose
		out.High[i] = max(rMax, haOpen, haClose)
		out.Low[i] = min(rMin, haOpen, haClose)
	}
	return out
}

// SmoothedRSI - RSI, сглаженный EMA(smooth) и усреднённый с предыдущим
// значением в духе Heikin-Ashi. Undefined positions read as the 50 midline.
func SmoothedRSI(closes []float64, length, smooth int) []float64 {
	smoothed := EMA(RSIWilder(closes, length), smooth)
	out := make([]float64, len(closes))
	for i := range closes {
		curr := smoothed[i]
		if i == 0 || !Defined(curr) {
			if Defined(curr) {
				out[i] = curr
			} else {
				out[i] = 50
			}
			continue
		}
		out[i] = (out[i-1] + curr) / 2
	}
	return out
}
