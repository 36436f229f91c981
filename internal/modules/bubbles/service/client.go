package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// ErrNoData - ни один адрес не отдал список монет.
var ErrNoData = errors.New("cryptobubbles: no data")

// Coin - одна монета из bubbles1000.usd.json.
type Coin struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Rank          int     `json:"rank"`
	Price         float64 `json:"price"`
	MarketCap     float64 `json:"marketcap"`
	Volume        float64 `json:"volume"`
	Stable        bool    `json:"stable"`
	Hour          float64 `json:"performance_hour"`
	Day           float64 `json:"performance_day"`
	Week          float64 `json:"performance_week"`
	BinanceSymbol string  `json:"binance_symbol,omitempty"`
}

type rawCoin struct {
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Rank      int     `json:"rank"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"marketcap"`
	Volume    float64 `json:"volume"`
	Stable    bool    `json:"stable"`

	Performance struct {
		Hour float64 `json:"hour"`
		Day  float64 `json:"day"`
		Week float64 `json:"week"`
	} `json:"performance"`

	Symbols map[string]string `json:"symbols"`
}

func (r rawCoin) coin() Coin {
	return Coin{
		Name:          r.Name,
		Symbol:        r.Symbol,
		Rank:          r.Rank,
		Price:         r.Price,
		MarketCap:     r.MarketCap,
		Volume:        r.Volume,
		Stable:        r.Stable,
		Hour:          r.Performance.Hour,
		Day:           r.Performance.Day,
		Week:          r.Performance.Week,
		BinanceSymbol: strings.ReplaceAll(r.Symbols["binance"], "_", ""),
	}
}

func decodeCoins(body []byte) ([]Coin, error) {
	var rows []rawCoin
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "decode bubbles")
	}
	out := make([]Coin, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.coin())
	}
	return out, nil
}

// endpoint - URL плюс клиент. Для запасных IP клиент коннектится
// напрямую к адресу, Host и SNI остаются от URL.
type endpoint struct {
	url    string
	client *http.Client
	via    string
}

func buildEndpoints(urls, hostIPs []string, timeout time.Duration) []endpoint {
	out := make([]endpoint, 0, len(urls)*(len(hostIPs)+1))
	direct := &http.Client{Timeout: timeout}
	for _, u := range urls {
		out = append(out, endpoint{url: u, client: direct, via: "direct"})
	}
	for _, ip := range hostIPs {
		c := pinnedClient(ip, timeout)
		for _, u := range urls {
			out = append(out, endpoint{url: u, client: c, via: ip})
		}
	}
	return out
}

func pinnedClient(ip string, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		_, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		return dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// fetch проходит адреса по порядку до первого непустого ответа.
func (s *Service) fetch(ctx context.Context) ([]Coin, error) {
	var lastErr error = ErrNoData
	for _, ep := range s.endpoints {
		coins, err := s.fetchOne(ctx, ep)
		if err == nil && len(coins) > 0 {
			return coins, nil
		}
		if err == nil {
			err = ErrNoData
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		s.log.Warnf("[BUBBLES] %s via %s: %v", ep.url, ep.via, err)
	}
	return nil, fmt.Errorf("Service.fetch: %w", lastErr)
}

func (s *Service) fetchOne(ctx context.Context, ep endpoint) ([]Coin, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Referer", "https://cryptobubbles.net/")

	resp, err := ep.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("http %d", resp.StatusCode)
	}
	return decodeCoins(body)
}
