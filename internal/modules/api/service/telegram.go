package service

import (
	"net/http"

	"github.com/pkg/errors"

	strategy "signal_bot/internal/modules/strategy/service"
)

type chatRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (h *Handler) messenger(w http.ResponseWriter) bool {
	if h.Messenger == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("telegram unavailable"))
		return false
	}
	return true
}

func (h *Handler) telegramStatus(w http.ResponseWriter, r *http.Request) {
	if !h.messenger(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.Messenger.Status())
}

func (h *Handler) telegramToggle(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.messenger(w) {
			return
		}
		h.Messenger.SetEnabled(on)
		writeJSON(w, http.StatusOK, h.Messenger.Status())
	}
}

func (h *Handler) updateChat(w http.ResponseWriter, r *http.Request, set func(id int64) error) {
	if !h.messenger(w) {
		return
	}
	var req chatRequest
	if _, err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := set(req.ChatID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Messenger.Status())
}

func (h *Handler) telegramDefault(w http.ResponseWriter, r *http.Request) {
	h.updateChat(w, r, func(id int64) error { return h.Messenger.SetDefaultChat(id) })
}

func (h *Handler) telegramSummary(w http.ResponseWriter, r *http.Request) {
	h.updateChat(w, r, func(id int64) error { return h.Messenger.SetSummaryChat(id) })
}

func (h *Handler) telegramStrategy(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, strategy.ErrUnknownStrategy)
		return
	}
	h.updateChat(w, r, func(id int64) error { return h.Messenger.SetStrategyChat(kind, id) })
}

func (h *Handler) telegramStrategyRemove(w http.ResponseWriter, r *http.Request) {
	if !h.messenger(w) {
		return
	}
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, strategy.ErrUnknownStrategy)
		return
	}
	if err := h.Messenger.SetStrategyChat(kind, 0); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Messenger.Status())
}

func (h *Handler) telegramTest(w http.ResponseWriter, r *http.Request) {
	if !h.messenger(w) {
		return
	}
	var req chatRequest
	if _, err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Messenger.SendTest(r.Context(), req.ChatID, req.Text); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}
