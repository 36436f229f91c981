package helper

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Длительность таймфреймов в секундах.
var tfSeconds = map[string]int64{
	"1m":  60,
	"3m":  180,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
	"4h":  14400,
	"1d":  86400,
	"1w":  604800,
}

// Timeframes - допустимые таймфреймы по возрастанию.
var Timeframes = []string{"1m", "3m", "5m", "15m", "30m", "1h", "4h", "1d", "1w"}

func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "24h", "1d", "d":
		return "1d"
	case "7d", "1w", "w":
		return "1w"
	default:
		return s
	}
}

func ValidTF(tf string) bool {
	_, ok := tfSeconds[NormTF(tf)]
	return ok
}

// TFSeconds returns the candle duration of tf in seconds.
func TFSeconds(tf string) (int64, bool) {
	sec, ok := tfSeconds[NormTF(tf)]
	return sec, ok
}

// BucketStart - начало свечи таймфрейма, в которую попадает t:
// floor(unix/tf)*tf.
func BucketStart(t time.Time, tfSec int64) int64 {
	sec := t.Unix()
	if tfSec <= 0 {
		return sec
	}
	start := sec - sec%tfSec
	if sec < 0 && sec%tfSec != 0 {
		start -= tfSec
	}
	return start
}

// SortTimeframes упорядочивает таймфреймы по длительности, неизвестные в конце.
func SortTimeframes(tfs []string) []string {
	out := make([]string, 0, len(tfs))
	seen := make(map[string]struct{}, len(tfs))
	for _, tf := range Timeframes {
		for _, raw := range tfs {
			if NormTF(raw) == tf {
				if _, ok := seen[tf]; !ok {
					seen[tf] = struct{}{}
					out = append(out, tf)
				}
			}
		}
	}
	for _, raw := range tfs {
		tf := NormTF(raw)
		if _, ok := seen[tf]; !ok {
			seen[tf] = struct{}{}
			out = append(out, tf)
		}
	}
	return out
}

// PairSymbol: BTCUSDT -> BTC/USDT. Уже разделённые символы не трогаем.
func PairSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(s, "/") {
		return s
	}
	for _, quote := range []string{"USDT", "USDC", "BUSD", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)] + "/" + quote
		}
	}
	return s
}

// PlainSymbol: BTC/USDT или BTC_USDT -> BTCUSDT.
func PlainSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "")
	return strings.ReplaceAll(s, "_", "")
}
