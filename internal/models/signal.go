package models

import (
	"math"
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Signal - результат стратегии. Передаётся по значению и после создания не меняется.
type Signal struct {
	Symbol     string         `json:"symbol"`
	Timeframe  string         `json:"timeframe"`
	Strategy   StrategyKind   `json:"strategy"`
	Direction  Direction      `json:"direction"`
	Price      float64        `json:"price"`
	Message    string         `json:"message"`
	RSI        *float64       `json:"rsi"`
	MACD       *float64       `json:"macd"`
	MACDSignal *float64       `json:"macd_signal"`
	EMA50      *float64       `json:"ema50"`
	Timestamp  time.Time      `json:"timestamp"`
	Raw        map[string]any `json:"raw_data"`
}

// Value возвращает указатель на v или nil для NaN/Inf.
func Value(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// RawFloat читает число из Raw.
func (s Signal) RawFloat(key string) (float64, bool) {
	v, ok := s.Raw[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	default:
		return 0, false
	}
}
