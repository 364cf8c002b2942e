package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/rollup"
	"github.com/dukerupert/clubledger/internal/store"
	"github.com/dukerupert/clubledger/internal/websocket"
)

type GeneralCostHandler struct {
	broadcaster
	costStore *store.GeneralCostStore
	logger    *slog.Logger
}

func NewGeneralCostHandler(cs *store.GeneralCostStore, hub *websocket.Hub, logger *slog.Logger) *GeneralCostHandler {
	return &GeneralCostHandler{broadcaster: broadcaster{hub}, costStore: cs, logger: logger}
}

type generalCostRequest struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
}

func (req generalCostRequest) input() (store.GeneralCostInput, error) {
	in := store.GeneralCostInput{
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
	}
	if in.Description == "" {
		return in, errors.New("description is required")
	}
	if req.Amount == nil || *req.Amount < 0 {
		return in, errors.New("amount must be a non-negative number")
	}
	in.Amount = *req.Amount
	date, err := parseDate(req.Date)
	if err != nil {
		return in, err
	}
	in.Date = date
	return in, nil
}

func (h *GeneralCostHandler) List(w http.ResponseWriter, r *http.Request) {
	costs, err := h.costStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list general costs", err)
		return
	}
	if costs == nil {
		costs = []model.GeneralCost{}
	}
	writeJSON(w, http.StatusOK, costs)
}

type generalCostSummary struct {
	Total      float64                `json:"total"`
	Count      int                    `json:"count"`
	Categories []rollup.CategoryTotal `json:"categories"`
}

// Summary totals the user's general costs, overall and per category.
func (h *GeneralCostHandler) Summary(w http.ResponseWriter, r *http.Request) {
	costs, err := h.costStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list general costs", err)
		return
	}
	categories := rollup.ByCategory(costs)
	if categories == nil {
		categories = []rollup.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, generalCostSummary{
		Total:      rollup.GeneralCostsTotal(costs),
		Count:      len(costs),
		Categories: categories,
	})
}

func (h *GeneralCostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req generalCostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	cost, err := h.costStore.Create(r.Context(), userID, in)
	if err != nil {
		serverError(w, r, h.logger, "failed to create general cost", err)
		return
	}

	h.broadcast(userID, websocket.EntityGeneralCost, websocket.ActionCreated, cost.ID)
	writeJSON(w, http.StatusCreated, cost)
}

func (h *GeneralCostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req generalCostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	cost, err := h.costStore.Update(r.Context(), userID, id, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "general cost not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to update general cost", err)
		return
	}

	h.broadcast(userID, websocket.EntityGeneralCost, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, cost)
}

func (h *GeneralCostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	err = h.costStore.Delete(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "general cost not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to delete general cost", err)
		return
	}

	h.broadcast(userID, websocket.EntityGeneralCost, websocket.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}
