package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

type Config struct {
	URLs     []string
	HostIPs  []string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Service - рейтинг монет по данным CryptoBubbles.
// Список кэшируется на CacheTTL, фоновое обновление идёт через gocron.
// При недоступности источника отдаём устаревший кэш.
type Service struct {
	cfg       Config
	endpoints []endpoint
	log       *zap.SugaredLogger
	cron      *gocron.Scheduler

	mu        sync.RWMutex
	coins     []Coin
	fetchedAt time.Time
	refreshMu sync.Mutex

	now func() time.Time
}

func NewService(cfg Config, log *zap.SugaredLogger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		cfg:       cfg,
		endpoints: buildEndpoints(cfg.URLs, cfg.HostIPs, cfg.Timeout),
		log:       log,
		now:       time.Now,
	}
}

// Start запускает периодическое обновление кэша. Первый прогон сразу.
func (s *Service) Start() error {
	s.cron = gocron.NewScheduler(time.UTC)
	s.cron.SingletonModeAll()
	_, err := s.cron.Every(s.cfg.CacheTTL).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*s.cfg.Timeout*time.Duration(max(1, len(s.endpoints))))
		defer cancel()
		if _, err := s.refresh(ctx); err != nil {
			s.log.Warnf("[BUBBLES] refresh: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.StartAsync()
	return nil
}

func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Coins - текущий список; при протухшем кэше идёт в сеть.
func (s *Service) Coins(ctx context.Context) ([]Coin, error) {
	s.mu.RLock()
	coins, at := s.coins, s.fetchedAt
	s.mu.RUnlock()
	if coins != nil && s.now().Sub(at) < s.cfg.CacheTTL {
		return coins, nil
	}
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) ([]Coin, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// пока ждали, кэш мог обновить другой вызов
	s.mu.RLock()
	coins, at := s.coins, s.fetchedAt
	s.mu.RUnlock()
	if coins != nil && s.now().Sub(at) < s.cfg.CacheTTL {
		return coins, nil
	}

	fresh, err := s.fetch(ctx)
	if err != nil {
		if coins != nil {
			s.log.Warnf("[BUBBLES] using stale cache from %s: %v", at.Format(time.RFC3339), err)
			return coins, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.coins, s.fetchedAt = fresh, s.now()
	s.mu.Unlock()
	s.log.Infof("[BUBBLES] loaded %d coins", len(fresh))
	return fresh, nil
}

// CacheTime - момент последней удачной загрузки.
func (s *Service) CacheTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func tradeable(c Coin, excludeStable bool, minVolume float64) bool {
	if c.BinanceSymbol == "" {
		return false
	}
	if excludeStable && c.Stable {
		return false
	}
	return minVolume <= 0 || c.Volume >= minVolume
}

// TopVolatile - монеты по убыванию |изменения за 24ч|, без повторов
// Binance-символа. Равные значения сохраняют порядок источника.
func (s *Service) TopVolatile(ctx context.Context, limit int, excludeStable bool, minVolume float64) ([]Coin, error) {
	coins, err := s.Coins(ctx)
	if err != nil {
		return nil, err
	}

	picked := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if tradeable(c, excludeStable, minVolume) {
			picked = append(picked, c)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return math.Abs(picked[i].Day) > math.Abs(picked[j].Day)
	})
	return take(picked, limit), nil
}

// TopVolatileSymbols - то же в формате BTCUSDT. Пусто, если источник недоступен.
func (s *Service) TopVolatileSymbols(ctx context.Context, limit int, excludeStable bool, minVolume float64) []string {
	coins, err := s.TopVolatile(ctx, limit, excludeStable, minVolume)
	if err != nil {
		s.log.Warnf("[BUBBLES] ranking unavailable: %v", err)
		return nil
	}
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = c.BinanceSymbol
	}
	return out
}

// take - первые limit монет с уникальным BinanceSymbol.
func take(coins []Coin, limit int) []Coin {
	seen := make(map[string]struct{}, len(coins))
	out := make([]Coin, 0, min(limit, len(coins)))
	for _, c := range coins {
		if len(out) >= limit {
			break
		}
		if _, ok := seen[c.BinanceSymbol]; ok {
			continue
		}
		seen[c.BinanceSymbol] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (s *Service) movers(ctx context.Context, limit int, gainers bool) []Coin {
	coins, err := s.Coins(ctx)
	if err != nil {
		s.log.Warnf("[BUBBLES] movers unavailable: %v", err)
		return nil
	}
	picked := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if tradeable(c, true, 0) {
			picked = append(picked, c)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if gainers {
			return picked[i].Day > picked[j].Day
		}
		return picked[i].Day < picked[j].Day
	})
	return take(picked, limit)
}

func tickers(coins []Coin) []models.Ticker {
	out := make([]models.Ticker, len(coins))
	for i, c := range coins {
		out[i] = models.Ticker{
			Symbol:        c.BinanceSymbol,
			LastPrice:     c.Price,
			ChangePercent: c.Day,
			QuoteVolume:   c.Volume,
		}
	}
	return out
}

func (s *Service) TopGainers(ctx context.Context, limit int) []models.Ticker {
	return tickers(s.movers(ctx, limit, true))
}

func (s *Service) TopLosers(ctx context.Context, limit int) []models.Ticker {
	return tickers(s.movers(ctx, limit, false))
}

// CoinDetails ищет монету по тикеру (BTC) или Binance-символу (BTCUSDT, BTC/USDT).
func (s *Service) CoinDetails(ctx context.Context, symbol string) (Coin, bool, error) {
	coins, err := s.Coins(ctx)
	if err != nil {
		return Coin{}, false, err
	}
	want := strings.ToUpper(strings.TrimSpace(symbol))
	plain := helper.PlainSymbol(want)
	for _, c := range coins {
		if strings.EqualFold(c.Symbol, want) || (c.BinanceSymbol != "" && c.BinanceSymbol == plain) {
			return c, true, nil
		}
	}
	return Coin{}, false, nil
}

type Mover struct {
	Symbol string  `json:"symbol"`
	Change float64 `json:"change"`
}

type Summary struct {
	Status     string    `json:"status"`
	TotalCoins int       `json:"total_coins"`
	Tradeable  int       `json:"tradeable_on_binance"`
	CacheTime  time.Time `json:"cache_time"`
	TopGainers []Mover   `json:"top_5_gainers"`
	TopLosers  []Mover   `json:"top_5_losers"`
}

// Summary - общая картина рынка для API.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	coins, err := s.Coins(ctx)
	if err != nil {
		return Summary{Status: "error"}, err
	}
	n := 0
	for _, c := range coins {
		if tradeable(c, true, 0) {
			n++
		}
	}
	return Summary{
		Status:     "ok",
		TotalCoins: len(coins),
		Tradeable:  n,
		CacheTime:  s.CacheTime(),
		TopGainers: moverList(s.movers(ctx, 5, true)),
		TopLosers:  moverList(s.movers(ctx, 5, false)),
	}, nil
}

func moverList(coins []Coin) []Mover {
	out := make([]Mover, len(coins))
	for i, c := range coins {
		out[i] = Mover{Symbol: c.BinanceSymbol, Change: c.Day}
	}
	return out
}
