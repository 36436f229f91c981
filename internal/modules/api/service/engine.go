package service

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"
)

func (h *Handler) engineStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Status(r.Context()))
}

func (h *Handler) engineStart(w http.ResponseWriter, r *http.Request) {
	if h.Engine.Running() {
		writeJSON(w, http.StatusConflict, map[string]any{"running": true, "message": "engine already running"})
		return
	}
	h.Engine.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": true})
}

func (h *Handler) engineStop(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Stop(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"running": false})
}

type runRequest struct {
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`
}

// engineRun - ручной цикл. Пустые списки - значения из конфига.
func (h *Handler) engineRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if _, err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	symbols := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		if s = helper.PlainSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	for _, tf := range req.Timeframes {
		if !helper.ValidTF(tf) {
			writeError(w, http.StatusBadRequest, errors.Wrapf(helper.ErrInvalidTimeframe, "%q", tf))
			return
		}
	}

	report, err := h.Engine.RunOnce(r.Context(), symbols, req.Timeframes)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) strategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Strategies())
}

func (h *Handler) strategyTimeframes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Timeframes())
}

func kindParam(r *http.Request) (models.StrategyKind, bool) {
	return models.ParseStrategyKind(strings.ToUpper(chi.URLParam(r, "kind")))
}

func (h *Handler) updateStrategy(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, strategy.ErrUnknownStrategy)
		return
	}
	var probe map[string]any
	patch, err := readJSON(r, &probe)
	if err != nil || len(patch) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("body must be a JSON object with params"))
		return
	}

	info, err := h.Engine.UpdateStrategy(kind, patch)
	switch {
	case errors.Is(err, strategy.ErrUnknownStrategy):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
	default:
		writeJSON(w, http.StatusOK, info)
	}
}

type timeframesRequest struct {
	Timeframes []string `json:"timeframes"`
}

func (h *Handler) setStrategyTimeframes(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, strategy.ErrUnknownStrategy)
		return
	}
	var req timeframesRequest
	if _, err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tfs, err := h.Engine.SetTimeframes(kind, req.Timeframes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if h.Settings != nil {
		if err = h.Settings.SetStrategyTimeframes(kind, tfs); err != nil {
			// движок уже переключён, не сохранилось только на диск
			h.Log.Warnf("[API] persist %s timeframes: %v", kind, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategy": kind, "timeframes": tfs})
}

func (h *Handler) recentSignals(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("journal disabled"))
		return
	}
	q := r.URL.Query()
	var kind models.StrategyKind
	if raw := q.Get("strategy"); raw != "" {
		k, ok := models.ParseStrategyKind(strings.ToUpper(raw))
		if !ok {
			writeError(w, http.StatusBadRequest, strategy.ErrUnknownStrategy)
			return
		}
		kind = k
	}
	symbol := ""
	if raw := q.Get("symbol"); raw != "" {
		symbol = helper.PlainSymbol(raw)
	}

	list, err := h.Journal.Recent(r.Context(), symbol, kind, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if list == nil {
		list = []models.Signal{}
	}
	writeJSON(w, http.StatusOK, list)
}
