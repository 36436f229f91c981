package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

func candles(closes []float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     c,
			High:     c + 0.5,
			Low:      c - 0.5,
			Close:    c,
			Volume:   1000,
		}
	}
	return out
}

// reversal: 270 свечей пилы 100/101, затем 29 свечей падения по 1
// и последняя свеча с рывком вверх на jump.
func reversal(jump float64) []float64 {
	closes := make([]float64, 0, 300)
	for i := 0; i < 270; i++ {
		if i%2 == 0 {
			closes = append(closes, 100)
		} else {
			closes = append(closes, 101)
		}
	}
	for i := 270; i < 299; i++ {
		closes = append(closes, 100-float64(i-270))
	}
	return append(closes, closes[len(closes)-1]+jump)
}

func defaultStrategy(t *testing.T, kind models.StrategyKind) Strategy {
	t.Helper()
	s, err := New(kind, DefaultParams())
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	return s
}

func TestRSIRespectsEMAFilter(t *testing.T) {
	p := DefaultParams().RSI

	// рывок +3: RSI выходит из перепроданности, но цена ниже EMA50
	series := candles(reversal(3))

	if _, ok := NewRSI(p).Analyze(series, "BTCUSDT", "1h"); ok {
		t.Fatalf("expected no signal while close < ema50")
	}

	p.UseEMAFilter = false
	sig, ok := NewRSI(p).Analyze(series, "BTCUSDT", "1h")
	if !ok || sig.Direction != models.DirectionLong {
		t.Fatalf("expected LONG without filter, got ok=%v %+v", ok, sig)
	}

	// рывок +40: цена выше EMA50, фильтр пропускает
	p.UseEMAFilter = true
	sig, ok = NewRSI(p).Analyze(candles(reversal(40)), "BTCUSDT", "1h")
	if !ok || sig.Direction != models.DirectionLong {
		t.Fatalf("expected LONG with filter, got ok=%v %+v", ok, sig)
	}
	if sig.EMA50 == nil || sig.Price <= *sig.EMA50 {
		t.Fatalf("price %.2f must be above ema50 %v", sig.Price, sig.EMA50)
	}
}

func TestMACDCrossAtLastCandle(t *testing.T) {
	s := defaultStrategy(t, models.StrategyMACD)
	series := candles(reversal(30))
	k := len(series) - 1

	for end := 275; end < k; end++ {
		if sig, ok := s.Analyze(series[:end+1], "ETHUSDT", "15m"); ok {
			t.Fatalf("window ending at %d: unexpected %s", end, sig.Direction)
		}
	}

	sig, ok := s.Analyze(series, "ETHUSDT", "15m")
	if !ok || sig.Direction != models.DirectionLong {
		t.Fatalf("expected LONG at %d, got ok=%v", k, ok)
	}
	// сам факт пересечения: на прошлой свече MACD ниже сигнальной, на последней - не ниже
	p := DefaultParams().MACD
	line, signal, _ := indicator.MACD(models.Closes(series), p.FastPeriod, p.SlowPeriod, p.SignalPeriod)
	if !(line[k-1] < signal[k-1]) {
		t.Fatalf("bar %d: macd %.8f must be below signal %.8f", k-1, line[k-1], signal[k-1])
	}
	if !(line[k] >= signal[k]) {
		t.Fatalf("bar %d: macd %.8f must reach signal %.8f", k, line[k], signal[k])
	}
	if sig.MACD == nil || sig.MACDSignal == nil {
		t.Fatalf("macd values missing")
	}
	if math.Abs(*sig.MACD-line[k]) > 1e-6 || math.Abs(*sig.MACDSignal-signal[k]) > 1e-6 {
		t.Fatalf("reported %v/%v, computed %v/%v", *sig.MACD, *sig.MACDSignal, line[k], signal[k])
	}
}

func TestComboBothNow(t *testing.T) {
	p := DefaultParams().Combo
	p.ConfirmWindow = 6
	p.RequireEMA50 = false

	sig, ok := NewCombo(p).Analyze(candles(reversal(30)), "SOLUSDT", "1h")
	if !ok {
		t.Fatalf("expected COMBO signal")
	}
	if sig.Direction != models.DirectionLong {
		t.Fatalf("direction: %s", sig.Direction)
	}
	if got := sig.Raw["combo_type"]; got != ComboBothNow {
		t.Fatalf("combo_type: %v", got)
	}
	if sig.Strategy != models.StrategyCombo {
		t.Fatalf("strategy: %s", sig.Strategy)
	}
}

func TestDayTradeSameDirectionWithinWindow(t *testing.T) {
	sig, ok := defaultStrategy(t, models.StrategyDayTrade).Analyze(candles(reversal(30)), "BNBUSDT", "15m")
	if !ok || sig.Direction != models.DirectionLong {
		t.Fatalf("expected LONG, got ok=%v %+v", ok, sig)
	}
}

func TestTooFewCandles(t *testing.T) {
	set, err := BuildAll(models.StrategyKinds, DefaultParams())
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	for kind, s := range set {
		short := candles(reversal(30))[300-(s.MinCandles()-1):]
		if _, ok := s.Analyze(short, "BTCUSDT", "1h"); ok {
			t.Fatalf("%s: signal on %d candles, min %d", kind, len(short), s.MinCandles())
		}
		if _, ok := s.Analyze(nil, "BTCUSDT", "1h"); ok {
			t.Fatalf("%s: signal on empty series", kind)
		}
	}
}

func TestSignalsAreEncodable(t *testing.T) {
	set, err := BuildAll(models.StrategyKinds, DefaultParams())
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	flat := make([]float64, 300)
	for i := range flat {
		flat[i] = 50
	}
	for _, closes := range [][]float64{reversal(30), reversal(-30), flat} {
		for kind, s := range set {
			sig, ok := s.Analyze(candles(closes), "BTCUSDT", "4h")
			if !ok {
				continue
			}
			if sig.Direction != models.DirectionLong && sig.Direction != models.DirectionShort {
				t.Fatalf("%s: direction %q", kind, sig.Direction)
			}
			if _, err := sonic.Marshal(sig); err != nil {
				t.Fatalf("%s: marshal: %v", kind, err)
			}
		}
	}
}

func TestJFNSimulation(t *testing.T) {
	p := DefaultParams().JFN
	s := NewJFN(p)

	// медленная линия - ноль, быстрая задаёт пересечения:
	// вверх на 1, вниз на 4, вверх на 7
	fast := []float64{-1, 1, 1, 1, -1, -1, -1, 1, 1, 1, 1, 1}
	slow := make([]float64, len(fast))

	series := make([]models.Candle, len(fast))
	for i := range series {
		series[i] = models.Candle{Open: 100, High: 100.1, Low: 99.9, Close: 100}
	}
	series[3].High = 102 // long: тейк 101.6
	series[5].High = 101 // short: стоп 100.8 ...
	series[5].Low = 98   // ... и тейк 98.4 на одной свече - убыток
	series[8].Low = 99   // long: стоп 99.2

	results := s.simulate(series, fast, slow)
	want := []bool{true, false, false}
	if len(results) != len(want) {
		t.Fatalf("results: %v", results)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("results: %v, want %v", results, want)
		}
	}

	s.p.TradesWindow = 50
	stats, ok := s.assertiveness(results)
	if !ok || stats.Wins != 1 || stats.Losses != 2 || stats.Shown != 3 {
		t.Fatalf("stats: %+v", stats)
	}
	if math.Abs(stats.HitRate-100.0/3) > 1e-9 {
		t.Fatalf("hit rate: %v", stats.HitRate)
	}

	s.p.TradesWindow = 2
	stats, _ = s.assertiveness(results)
	if stats.HitRate != 0 || stats.Shown != 2 || stats.Wins != 1 {
		t.Fatalf("windowed stats: %+v", stats)
	}
}

func TestJFNTimeout(t *testing.T) {
	p := DefaultParams().JFN
	p.MaxHoldBars = 2

	fast := []float64{-1, 1, 1, 1, 1}
	slow := make([]float64, len(fast))
	series := make([]models.Candle, len(fast))
	for i := range series {
		series[i] = models.Candle{High: 100.1, Low: 99.9, Close: 100}
	}

	if got := NewJFN(p).simulate(series, fast, slow); len(got) != 1 || got[0] {
		t.Fatalf("timeout must be a loss: %v", got)
	}

	p.CountTimeoutAsLoss = false
	if got := NewJFN(p).simulate(series, fast, slow); len(got) != 0 {
		t.Fatalf("timeout must be dropped: %v", got)
	}
	if _, ok := NewJFN(p).assertiveness(nil); ok {
		t.Fatalf("no trades - no assertiveness")
	}
}

func TestReconfigure(t *testing.T) {
	old := defaultStrategy(t, models.StrategyRSI)

	updated, err := Reconfigure(old, []byte(`{"overbought": 85}`))
	if err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if got := updated.Params().(models.RSIParams); got.Overbought != 85 || got.Period != 14 {
		t.Fatalf("patched params: %+v", got)
	}
	if got := old.Params().(models.RSIParams); got.Overbought != 70 {
		t.Fatalf("original strategy changed: %+v", got)
	}

	if _, err = Reconfigure(old, []byte(`{"oversold": 90}`)); err == nil {
		t.Fatalf("oversold above overbought must fail validation")
	}
	if _, err = Reconfigure(old, []byte(`{"period": "x"}`)); err == nil {
		t.Fatalf("bad patch must fail")
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("NOPE", DefaultParams()); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	p := DefaultParams()
	p.MACD.SlowPeriod = 5
	if _, err := New(models.StrategyMACD, p); err == nil {
		t.Fatalf("expected validation error")
	}
}

// sine - гладкая волна 100±10 с периодом 60 свечей.
func sine(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(2*math.Pi*float64(i)/60)
	}
	return out
}

// exhaustion: плоско на 100, скачок на 200, долгое сползание по 0.01
// и последняя свеча +0.01. RSI глубоко в перепроданности, цена ещё выше EMA50.
func exhaustion() []float64 {
	out := make([]float64, 0, 181)
	for i := 0; i < 60; i++ {
		out = append(out, 100)
	}
	for k := 0; k < 120; k++ {
		out = append(out, 200-0.01*float64(k))
	}
	return append(out, out[len(out)-1]+0.01)
}

func mirror(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i, c := range closes {
		out[i] = 300 - c
	}
	return out
}

func TestStrategiesFireOnTrigger(t *testing.T) {
	tests := []struct {
		name   string
		kind   models.StrategyKind
		closes []float64
		want   models.Direction
	}{
		{"gcm turn up below buy level", models.StrategyGCM, sine(47), models.DirectionLong},
		{"gcm turn down above sell level", models.StrategyGCM, sine(77), models.DirectionShort},
		{"scalping ema cross up", models.StrategyScalping, sine(62), models.DirectionLong},
		{"scalping ema cross down", models.StrategyScalping, sine(92), models.DirectionShort},
		{"swing ha-rsi above 50", models.StrategySwingTrade, sine(120), models.DirectionLong},
		{"swing ha-rsi below 50", models.StrategySwingTrade, sine(150), models.DirectionShort},
		{"rsi_ema50 oversold cross", models.StrategyRSIEMA50, exhaustion(), models.DirectionLong},
		{"rsi_ema50 overbought cross", models.StrategyRSIEMA50, mirror(exhaustion()), models.DirectionShort},
		{"jfn ema cross up", models.StrategyJFN, sine(125), models.DirectionLong},
		{"jfn ema cross down", models.StrategyJFN, sine(155), models.DirectionShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultStrategy(t, tt.kind)
			series := candles(tt.closes)

			sig, ok := s.Analyze(series, "BTCUSDT", "1h")
			if !ok {
				t.Fatalf("expected %s signal on %d candles", tt.want, len(series))
			}
			if sig.Strategy != tt.kind || sig.Direction != tt.want {
				t.Fatalf("got %s %s, want %s %s", sig.Strategy, sig.Direction, tt.kind, tt.want)
			}
			if last := tt.closes[len(tt.closes)-1]; sig.Price != last {
				t.Fatalf("price %v, want last close %v", sig.Price, last)
			}
			if sig.Symbol != "BTCUSDT" || sig.Timeframe != "1h" {
				t.Fatalf("symbol/timeframe: %s %s", sig.Symbol, sig.Timeframe)
			}

			// свечой раньше условия ещё нет
			if prev, ok := s.Analyze(series[:len(series)-1], "BTCUSDT", "1h"); ok {
				t.Fatalf("one bar earlier: unexpected %s", prev.Direction)
			}
		})
	}
}

func TestGCMNeedsTurnBeyondLevel(t *testing.T) {
	series := candles(sine(47))

	// точка разворота около -45: уровень -50 её не пропускает
	p := DefaultParams().GCM
	p.BuyLevel = -50
	if sig, ok := NewGCM(p).Analyze(series, "BTCUSDT", "1h"); ok {
		t.Fatalf("turn above buy level must be ignored, got %s", sig.Direction)
	}

	p.BuyLevel = -40
	sig, ok := NewGCM(p).Analyze(series, "BTCUSDT", "1h")
	if !ok || sig.Direction != models.DirectionLong {
		t.Fatalf("expected LONG at buy level -40, got ok=%v", ok)
	}
	if prev, _ := sig.Raw["ha_close_prev"].(float64); prev > -40 {
		t.Fatalf("turning value %v must be at or below the level", prev)
	}
}

func TestJFNAssertGate(t *testing.T) {
	series := candles(sine(125))

	tests := []struct {
		name    string
		gate    bool
		takePct float64
		wantOK  bool
		wantHit float64
	}{
		// все смоделированные сделки по умолчанию закрываются тейком
		{"gate passes high hit rate", true, 1.6, true, 100},
		// тейк недостижим: все сделки выбиты стопом
		{"gate blocks low hit rate", true, 50, false, 0},
		{"gate off reports low hit rate", false, 50, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams().JFN
			p.AssertGate = tt.gate
			p.TakePct = tt.takePct

			sig, ok := NewJFN(p).Analyze(series, "ETHUSDT", "4h")
			if ok != tt.wantOK {
				t.Fatalf("ok=%v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if sig.Strategy != models.StrategyJFN || sig.Direction != models.DirectionLong {
				t.Fatalf("got %s %s", sig.Strategy, sig.Direction)
			}
			if got := sig.Raw["assertiveness"]; got != tt.wantHit {
				t.Fatalf("assertiveness %v, want %v", got, tt.wantHit)
			}
			if got := sig.Raw["trades"]; got != 4 {
				t.Fatalf("trades %v, want 4", got)
			}
		})
	}
}
