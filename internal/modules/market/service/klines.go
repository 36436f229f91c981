package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// FetchCandles - последние limit свечей symbol/timeframe по возрастанию времени.
// Ошибки логируются, результат тогда пустой.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) []models.Candle {
	candles, err := c.Klines(ctx, symbol, timeframe, limit)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warnf("[MARKET] klines %s %s: %v", symbol, timeframe, err)
		}
		return nil
	}
	return candles
}

// Klines - то же, что FetchCandles, но с ошибкой.
func (c *Client) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	tf := helper.NormTF(timeframe)
	if !helper.ValidTF(tf) {
		return nil, fmt.Errorf("%w: %q", helper.ErrInvalidTimeframe, timeframe)
	}

	q := url.Values{}
	q.Set("symbol", helper.PlainSymbol(symbol))
	q.Set("interval", tf)
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v3/klines", q)
	if err != nil {
		return nil, err
	}
	return decodeKlines(body)
}

// строка klines: [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
func decodeKlines(body []byte) ([]models.Candle, error) {
	var rows [][]any
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		openMs, ok := row[0].(float64)
		if !ok {
			continue
		}
		closep := num(row[4])
		if closep <= 0 {
			continue
		}
		candle := models.Candle{
			OpenTime: time.UnixMilli(int64(openMs)).UTC(),
			Open:     num(row[1]),
			High:     num(row[2]),
			Low:      num(row[3]),
			Close:    closep,
			Volume:   num(row[5]),
		}
		// серия строго возрастает по времени
		if n := len(out); n > 0 && !candle.OpenTime.After(out[n-1].OpenTime) {
			continue
		}
		out = append(out, candle)
	}
	return out, nil
}

func num(v any) float64 {
	switch x := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case float64:
		return x
	default:
		return 0
	}
}

// FetchMultipleCandles грузит свечи по всем символам: не больше
// Concurrency запросов одновременно и пауза RequestDelay после каждого.
// Символы без данных в ответ не попадают.
func (c *Client) FetchMultipleCandles(ctx context.Context, symbols []string, timeframe string, limit int) map[string][]models.Candle {
	var (
		mu  sync.Mutex
		out = make(map[string][]models.Candle, len(symbols))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			candles := c.FetchCandles(gctx, sym, timeframe, limit)
			if len(candles) > 0 {
				mu.Lock()
				out[sym] = candles
				mu.Unlock()
			}
			// ошибка только при отмене: остальные символы не грузим
			return sleep(gctx, c.cfg.RequestDelay)
		})
	}
	_ = g.Wait()
	return out
}
