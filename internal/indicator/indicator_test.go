package indicator

import (
	"math"
	"math/rand"
	"testing"
)

func randomWalk(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		price += r.NormFloat64() * 2
		if price < 1 {
			price = 1
		}
		out[i] = price
	}
	return out
}

func TestRSIWilderRangeAndWarmup(t *testing.T) {
	for _, period := range []int{2, 5, 14, 21} {
		for seed := int64(1); seed <= 5; seed++ {
			closes := randomWalk(300, seed)
			rsi := RSIWilder(closes, period)
			if len(rsi) != len(closes) {
				t.Fatalf("len mismatch: %d != %d", len(rsi), len(closes))
			}
			for i := 0; i < period; i++ {
				if !math.IsNaN(rsi[i]) {
					t.Fatalf("period=%d: index %d should be undefined, got %v", period, i, rsi[i])
				}
			}
			for i := period; i < len(rsi); i++ {
				if !Defined(rsi[i]) {
					t.Fatalf("period=%d: index %d undefined", period, i)
				}
				if rsi[i] < 0 || rsi[i] > 100 {
					t.Fatalf("period=%d: rsi[%d]=%v out of range", period, i, rsi[i])
				}
			}
		}
	}
}

func TestRSIWilderSaturatesWithoutLosses(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(10 + i)
	}
	rsi := RSIWilder(closes, 14)
	for i := 14; i < len(rsi); i++ {
		if rsi[i] != 100 {
			t.Fatalf("rsi[%d]=%v, want 100", i, rsi[i])
		}
	}
}

func TestRSIWilderSeedAndRecursion(t *testing.T) {
	// deltas: +1 -1 +2 -2 +1
	closes := []float64{10, 11, 10, 12, 10, 11}
	rsi := RSIWilder(closes, 4)

	// seed over deltas 1..4: gain (1+2)/4, loss (1+2)/4
	if got := Round(rsi[4], 6); got != 50 {
		t.Fatalf("seed rsi=%v, want 50", got)
	}
	ag := (0.75*3 + 1) / 4
	al := (0.75 * 3) / 4
	want := 100 - 100/(1+ag/al)
	if math.Abs(rsi[5]-want) > 1e-9 {
		t.Fatalf("rsi[5]=%v, want %v", rsi[5], want)
	}
}

func TestRSIWilderShortInput(t *testing.T) {
	rsi := RSIWilder([]float64{1, 2, 3}, 14)
	for i, v := range rsi {
		if !math.IsNaN(v) {
			t.Fatalf("index %d should be NaN", i)
		}
	}
}

func TestEMASeedsOnFirstDefinedValue(t *testing.T) {
	series := []float64{NaN, NaN, 10, 20, 20}
	ema := EMA(series, 3)
	if !math.IsNaN(ema[0]) || !math.IsNaN(ema[1]) {
		t.Fatalf("leading values should be NaN: %v", ema)
	}
	if ema[2] != 10 {
		t.Fatalf("ema[2]=%v, want 10", ema[2])
	}
	// alpha = 0.5
	if ema[3] != 15 || ema[4] != 17.5 {
		t.Fatalf("unexpected ema tail: %v", ema)
	}
}

func TestSMAWindow(t *testing.T) {
	sma := SMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{NaN, NaN, 2, 3, 4}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(sma[i]) {
				t.Fatalf("sma[%d]=%v, want NaN", i, sma[i])
			}
			continue
		}
		if sma[i] != want[i] {
			t.Fatalf("sma[%d]=%v, want %v", i, sma[i], want[i])
		}
	}
}

func TestSMASkipsWindowsWithUndefinedValues(t *testing.T) {
	sma := SMA([]float64{NaN, NaN, 3, 3, 3, 6}, 3)
	for i := 0; i < 4; i++ {
		if !math.IsNaN(sma[i]) {
			t.Fatalf("sma[%d]=%v, want NaN", i, sma[i])
		}
	}
	if sma[4] != 3 || sma[5] != 4 {
		t.Fatalf("unexpected tail: %v", sma)
	}
}

func TestMACDOnConstantSeriesIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 42
	}
	line, sig, hist := MACD(closes, 12, 26, 9)
	for i := range closes {
		if line[i] != 0 || sig[i] != 0 || hist[i] != 0 {
			t.Fatalf("index %d: line=%v sig=%v hist=%v", i, line[i], sig[i], hist[i])
		}
	}
}

func TestCrossRules(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		rule CrossRule
		want Cross
	}{
		{"reach up on touch", []float64{1, 2}, []float64{2, 2}, Reach, CrossUp},
		{"reach ignores touch start", []float64{2, 3}, []float64{2, 2}, Reach, NoCross},
		{"reach down on touch", []float64{3, 2}, []float64{2, 2}, Reach, CrossDown},
		{"break up from touch", []float64{2, 3}, []float64{2, 2}, Break, CrossUp},
		{"break ignores touch end", []float64{1, 2}, []float64{2, 2}, Break, NoCross},
		{"break down from touch", []float64{2, 1}, []float64{2, 2}, Break, CrossDown},
		{"undefined", []float64{NaN, 3}, []float64{2, 2}, Reach, NoCross},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CrossAt(tc.a, tc.b, 1, tc.rule); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCrossLevelAt(t *testing.T) {
	series := []float64{48, 50, 52}
	if got := CrossLevelAt(series, 50, 1, Break); got != NoCross {
		t.Fatalf("touching 50 is not a break, got %v", got)
	}
	if got := CrossLevelAt(series, 50, 2, Break); got != CrossUp {
		t.Fatalf("want CrossUp, got %v", got)
	}
	if got := CrossLevelAt(series, 50, 0, Break); got != NoCross {
		t.Fatalf("index 0 has no previous candle")
	}
}

func TestHeikinAshiRSIAlignment(t *testing.T) {
	closes := randomWalk(120, 7)
	high := make([]float64, len(closes))
	low := make([]float64, len(closes))
	for i, c := range closes {
		high[i] = c + 1
		low[i] = c - 1
	}
	ha := HeikinAshiRSI(high, low, closes, 10, 5)
	if len(ha.Close) != len(closes) || len(ha.Open) != len(closes) {
		t.Fatalf("series must keep input length")
	}
	for i := 0; i < 10; i++ {
		if Defined(ha.Close[i]) {
			t.Fatalf("index %d should be warm-up", i)
		}
	}
	for i := 10; i < len(closes); i++ {
		if !Defined(ha.Close[i]) || !Defined(ha.Open[i]) {
			t.Fatalf("index %d undefined", i)
		}
		if ha.Close[i] < -50 || ha.Close[i] > 50 {
			t.Fatalf("zero-centred close out of range at %d: %v", i, ha.Close[i])
		}
		if ha.High[i] < ha.Low[i] {
			t.Fatalf("high below low at %d", i)
		}
	}
	// first defined open is the mid of open/close RSI, later opens are smoothed
	want := (ha.Open[10]*5 + ha.Close[10]) / 6
	if math.Abs(ha.Open[11]-want) > 1e-9 {
		t.Fatalf("open[11]=%v, want %v", ha.Open[11], want)
	}
}

func TestSmoothedRSIDefaultsToMidline(t *testing.T) {
	closes := randomWalk(40, 3)
	out := SmoothedRSI(closes, 14, 7)
	for i := 0; i < 14; i++ {
		if out[i] != 50 {
			t.Fatalf("warm-up value at %d = %v, want 50", i, out[i])
		}
	}
	if !Defined(out[20]) {
		t.Fatalf("value at 20 must be defined")
	}
}
