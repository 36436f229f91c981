package service

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const klinesBody = `[
 [1700000000000,"100.0","101.5","99.5","101.0","12.5",1700000059999,"0",1,"0","0","0"],
 [1700000060000,"101.0","102.0","100.5","101.8","10.0",1700000119999,"0",1,"0","0","0"],
 [1700000120000,"101.8","103.0","101.0","102.6","8.0",1700000179999,"0",1,"0","0","0"]
]`

func TestFetchCandlesFallsBackToNextBase(t *testing.T) {
	var downHits atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downHits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	var gotQuery atomic.Value
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		gotQuery.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer up.Close()

	c := NewClient(Config{BaseURLs: []string{down.URL, up.URL}, Timeout: time.Second}, nil)

	candles := c.FetchCandles(context.Background(), "BTC/USDT", "1H", 3)
	if len(candles) != 3 {
		t.Fatalf("candles: %d", len(candles))
	}
	if candles[2].Close != 102.6 || candles[0].High != 101.5 || candles[1].Volume != 10 {
		t.Fatalf("decoded: %+v", candles)
	}
	if !candles[0].OpenTime.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("open time: %v", candles[0].OpenTime)
	}
	if q := gotQuery.Load().(string); q != "interval=1h&limit=3&symbol=BTCUSDT" {
		t.Fatalf("query: %s", q)
	}

	// рабочий адрес запомнен, упавший больше не дёргаем
	_ = c.FetchCandles(context.Background(), "BTCUSDT", "1h", 3)
	if downHits.Load() != 1 {
		t.Fatalf("down base hit %d times", downHits.Load())
	}
}

func TestFetchCandlesBadRequestIsEmpty(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURLs: []string{srv.URL, srv.URL}}, nil)
	if got := c.FetchCandles(context.Background(), "NOPEUSDT", "1h", 10); len(got) != 0 {
		t.Fatalf("expected empty series, got %d", len(got))
	}
	if hits.Load() != 1 {
		t.Fatalf("bad request must not be retried on other bases: %d", hits.Load())
	}
}

func TestFetchMultipleCandlesSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "BADUSDT" {
			http.Error(w, "invalid", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURLs: []string{srv.URL}, Concurrency: 2, RequestDelay: time.Millisecond}, nil)
	got := c.FetchMultipleCandles(context.Background(), []string{"BTCUSDT", "BADUSDT", "ETHUSDT"}, "15m", 3)
	if len(got) != 2 || len(got["BTCUSDT"]) != 3 || len(got["ETHUSDT"]) != 3 {
		t.Fatalf("result: %v", got)
	}
	if _, ok := got["BADUSDT"]; ok {
		t.Fatalf("failed symbol must be absent")
	}
}

func TestFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","lastPrice":"2000.50","priceChangePercent":"-3.25","quoteVolume":"123456.7"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURLs: []string{srv.URL}}, nil)
	tk, err := c.FetchTicker(context.Background(), "ETH/USDT")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if tk.Symbol != "ETHUSDT" || tk.LastPrice != 2000.5 || tk.ChangePercent != -3.25 {
		t.Fatalf("ticker: %+v", tk)
	}
}

func TestMoversSortsByChange(t *testing.T) {
	var gotSymbols atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbols.Store(r.URL.Query().Get("symbols"))
		_, _ = w.Write([]byte(`[
 {"symbol":"BTCUSDT","lastPrice":"60000","priceChangePercent":"1.5","quoteVolume":"1"},
 {"symbol":"ETHUSDT","lastPrice":"3000","priceChangePercent":"-4.0","quoteVolume":"1"},
 {"symbol":"SOLUSDT","lastPrice":"150","priceChangePercent":"6.2","quoteVolume":"1"}
]`))
	}))
	defer srv.Close()

	m := NewClient(Config{BaseURLs: []string{srv.URL}}, nil).Movers([]string{"BTC/USDT", "ETHUSDT", "SOLUSDT"})

	gainers := m.TopGainers(context.Background(), 2)
	if len(gainers) != 2 || gainers[0].Symbol != "SOLUSDT" || gainers[1].Symbol != "BTCUSDT" {
		t.Fatalf("gainers: %+v", gainers)
	}
	losers := m.TopLosers(context.Background(), 5)
	if len(losers) != 3 || losers[0].Symbol != "ETHUSDT" {
		t.Fatalf("losers: %+v", losers)
	}
	if q := gotSymbols.Load().(string); q != `["BTCUSDT","ETHUSDT","SOLUSDT"]` {
		t.Fatalf("symbols param: %s", q)
	}
}

func TestCloseDropsIdleConnections(t *testing.T) {
	closed := make(chan struct{}, 1)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	srv.Config.ConnState = func(_ net.Conn, st http.ConnState) {
		if st == http.StateClosed {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	}
	srv.Start()
	defer srv.Close()

	c := NewClient(Config{BaseURLs: []string{srv.URL}, Timeout: time.Second}, nil)
	if _, err := c.get(context.Background(), "/api/v3/ping", nil); err != nil {
		t.Fatalf("get: %v", err)
	}

	// соединение осталось в пуле keep-alive
	select {
	case <-closed:
		t.Fatalf("connection closed before Close")
	case <-time.After(50 * time.Millisecond):
	}

	c.Close()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("idle connection still open after Close")
	}
}
