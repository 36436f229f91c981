package service

import (
	"context"
	"net/url"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
}

func (t ticker24h) model() models.Ticker {
	return models.Ticker{
		Symbol:        t.Symbol,
		LastPrice:     num(t.LastPrice),
		ChangePercent: num(t.PriceChangePercent),
		QuoteVolume:   num(t.QuoteVolume),
	}
}

// FetchTicker - 24h статистика по одному символу.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	q := url.Values{}
	q.Set("symbol", helper.PlainSymbol(symbol))

	body, err := c.get(ctx, "/api/v3/ticker/24hr", q)
	if err != nil {
		return models.Ticker{}, err
	}
	var t ticker24h
	if err = sonic.Unmarshal(body, &t); err != nil {
		return models.Ticker{}, errors.Wrap(err, "decode ticker")
	}
	return t.model(), nil
}

// FetchTickers - 24h статистика по списку символов одним запросом.
func (c *Client) FetchTickers(ctx context.Context, symbols []string) ([]models.Ticker, error) {
	plain := make([]string, len(symbols))
	for i, s := range symbols {
		plain[i] = helper.PlainSymbol(s)
	}
	list, err := sonic.MarshalString(plain)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbols", list)
	body, err := c.get(ctx, "/api/v3/ticker/24hr", q)
	if err != nil {
		return nil, err
	}

	var rows []ticker24h
	if err = sonic.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "decode tickers")
	}
	out := make([]models.Ticker, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// Movers - лидеры роста/падения среди фиксированного списка символов.
// Источник сводки, когда ранжирование выключено.
type Movers struct {
	c       *Client
	symbols []string
}

func (c *Client) Movers(symbols []string) *Movers {
	return &Movers{c: c, symbols: symbols}
}

func (m *Movers) TopGainers(ctx context.Context, limit int) []models.Ticker {
	return m.top(ctx, limit, func(a, b models.Ticker) bool { return a.ChangePercent > b.ChangePercent })
}

func (m *Movers) TopLosers(ctx context.Context, limit int) []models.Ticker {
	return m.top(ctx, limit, func(a, b models.Ticker) bool { return a.ChangePercent < b.ChangePercent })
}

func (m *Movers) top(ctx context.Context, limit int, less func(a, b models.Ticker) bool) []models.Ticker {
	if len(m.symbols) == 0 || limit <= 0 {
		return nil
	}
	list, err := m.c.FetchTickers(ctx, m.symbols)
	if err != nil {
		m.c.log.Warnf("[MARKET] tickers: %v", err)
		return nil
	}
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}
