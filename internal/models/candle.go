package models

import "time"

// Candle - одна свеча OHLCV. Серия упорядочена по OpenTime по возрастанию.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Closes returns the close prices aligned with the series index.
func Closes(series []Candle) []float64 {
	out := make([]float64, len(series))
	for i, c := range series {
		out[i] = c.Close
	}
	return out
}

func Highs(series []Candle) []float64 {
	out := make([]float64, len(series))
	for i, c := range series {
		out[i] = c.High
	}
	return out
}

func Lows(series []Candle) []float64 {
	out := make([]float64, len(series))
	for i, c := range series {
		out[i] = c.Low
	}
	return out
}

// Ticker - снимок 24h по символу.
type Ticker struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"last_price"`
	ChangePercent float64 `json:"change_percent"`
	QuoteVolume   float64 `json:"quote_volume"`
}
