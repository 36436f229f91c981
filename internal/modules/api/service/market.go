package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"signal_bot/internal/helper"
	marketsvc "signal_bot/internal/modules/market/service"
)

func (h *Handler) ranking(w http.ResponseWriter) bool {
	if h.Ranking == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("ranking unavailable"))
		return false
	}
	return true
}

// rankingTop - /api/ranking/top?limit=30&exclude_stable=true&min_volume=1000000
func (h *Handler) rankingTop(w http.ResponseWriter, r *http.Request) {
	if !h.ranking(w) {
		return
	}
	coins, err := h.Ranking.TopVolatile(r.Context(),
		queryInt(r, "limit", 30),
		queryBool(r, "exclude_stable", true),
		queryFloat(r, "min_volume", 0),
	)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	symbols := make([]string, len(coins))
	for i, c := range coins {
		symbols[i] = c.BinanceSymbol
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(coins),
		"symbols": symbols,
		"coins":   coins,
	})
}

func (h *Handler) rankingMovers(gainers bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ranking(w) {
			return
		}
		limit := queryInt(r, "limit", 10)
		if gainers {
			writeJSON(w, http.StatusOK, h.Ranking.TopGainers(r.Context(), limit))
			return
		}
		writeJSON(w, http.StatusOK, h.Ranking.TopLosers(r.Context(), limit))
	}
}

func (h *Handler) rankingSummary(w http.ResponseWriter, r *http.Request) {
	if !h.ranking(w) {
		return
	}
	sum, err := h.Ranking.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) rankingCoin(w http.ResponseWriter, r *http.Request) {
	if !h.ranking(w) {
		return
	}
	coin, ok, err := h.Ranking.CoinDetails(r.Context(), chi.URLParam(r, "symbol"))
	switch {
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	case !ok:
		writeError(w, http.StatusNotFound, errors.New("coin not found"))
	default:
		writeJSON(w, http.StatusOK, coin)
	}
}

func (h *Handler) marketTicker(w http.ResponseWriter, r *http.Request) {
	if h.Market == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("market unavailable"))
		return
	}
	t, err := h.Market.FetchTicker(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, marketStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// marketCandles - /api/market/candles/BTCUSDT?timeframe=1h&limit=100
func (h *Handler) marketCandles(w http.ResponseWriter, r *http.Request) {
	if h.Market == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("market unavailable"))
		return
	}
	tf := r.URL.Query().Get("timeframe")
	if tf == "" {
		tf = "1h"
	}
	candles, err := h.Market.Klines(r.Context(), chi.URLParam(r, "symbol"), tf, queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, marketStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, candles)
}

func marketStatus(err error) int {
	switch {
	case errors.Is(err, helper.ErrInvalidTimeframe), errors.Is(err, marketsvc.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
