package service

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"signal_bot/internal/models"
	bubbles "signal_bot/internal/modules/bubbles/service"
	engine "signal_bot/internal/modules/engine/service"
	telegram "signal_bot/internal/modules/telegram_bot/service"
)

type Engine interface {
	Start()
	Stop(ctx context.Context) error
	Running() bool
	Status(ctx context.Context) engine.Status
	RunOnce(ctx context.Context, symbols, timeframes []string) (engine.CycleReport, error)
	Strategies() []engine.StrategyInfo
	UpdateStrategy(kind models.StrategyKind, patch []byte) (engine.StrategyInfo, error)
	Timeframes() map[models.StrategyKind][]string
	SetTimeframes(kind models.StrategyKind, tfs []string) ([]string, error)
}

// TimeframeStore сохраняет назначения таймфреймов между рестартами.
type TimeframeStore interface {
	SetStrategyTimeframes(kind models.StrategyKind, tfs []string) error
}

type Messenger interface {
	Status() telegram.Status
	SetEnabled(v bool)
	SetDefaultChat(id int64) error
	SetSummaryChat(id int64) error
	SetStrategyChat(kind models.StrategyKind, id int64) error
	SendTest(ctx context.Context, chatID int64, text string) error
}

type Ranking interface {
	TopVolatile(ctx context.Context, limit int, excludeStable bool, minVolume float64) ([]bubbles.Coin, error)
	TopGainers(ctx context.Context, limit int) []models.Ticker
	TopLosers(ctx context.Context, limit int) []models.Ticker
	Summary(ctx context.Context) (bubbles.Summary, error)
	CoinDetails(ctx context.Context, symbol string) (bubbles.Coin, bool, error)
}

type Market interface {
	FetchTicker(ctx context.Context, symbol string) (models.Ticker, error)
	Klines(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
}

type Journal interface {
	Recent(ctx context.Context, symbol string, strategy models.StrategyKind, limit int) ([]models.Signal, error)
}

type Stream interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ServeSignals(w http.ResponseWriter, r *http.Request)
	Count() int
}

type Deps struct {
	Engine    Engine
	Settings  TimeframeStore
	Messenger Messenger
	Ranking   Ranking
	Market    Market
	Journal   Journal
	Stream    Stream
	Log       *zap.SugaredLogger
}

// Handler - публичный HTTP API бота.
type Handler struct {
	Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	return &Handler{Deps: deps}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLog)
	r.Use(middleware.Recoverer)

	if h.Stream != nil {
		r.Get("/ws", h.Stream.ServeWS)
		r.Get("/ws/signals", h.Stream.ServeSignals)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/engine", func(r chi.Router) {
			r.Get("/status", h.engineStatus)
			r.Post("/start", h.engineStart)
			r.Post("/stop", h.engineStop)
			r.Post("/run", h.engineRun)
		})

		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", h.strategies)
			r.Get("/timeframes", h.strategyTimeframes)
			r.Patch("/{kind}", h.updateStrategy)
			r.Put("/{kind}/timeframes", h.setStrategyTimeframes)
		})

		r.Route("/telegram", func(r chi.Router) {
			r.Get("/", h.telegramStatus)
			r.Post("/enable", h.telegramToggle(true))
			r.Post("/disable", h.telegramToggle(false))
			r.Put("/default", h.telegramDefault)
			r.Put("/summary", h.telegramSummary)
			r.Put("/strategies/{kind}", h.telegramStrategy)
			r.Delete("/strategies/{kind}", h.telegramStrategyRemove)
			r.Post("/test", h.telegramTest)
		})

		r.Route("/ranking", func(r chi.Router) {
			r.Get("/top", h.rankingTop)
			r.Get("/gainers", h.rankingMovers(true))
			r.Get("/losers", h.rankingMovers(false))
			r.Get("/summary", h.rankingSummary)
			r.Get("/coin/{symbol}", h.rankingCoin)
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/ticker/{symbol}", h.marketTicker)
			r.Get("/candles/{symbol}", h.marketCandles)
		})

		r.Get("/signals", h.recentSignals)
	})
	return r
}

func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Log.Debugw("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// readJSON читает тело запроса; пустое тело оставляет v как есть.
func readJSON(r *http.Request, v any) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return body, nil
	}
	return body, sonic.Unmarshal(body, v)
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64); err == nil && v >= 0 {
		return v
	}
	return def
}

func queryBool(r *http.Request, key string, def bool) bool {
	if v, err := strconv.ParseBool(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
