package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/store"
	"github.com/dukerupert/clubledger/internal/websocket"
)

type MenuItemHandler struct {
	broadcaster
	menuStore *store.MenuItemStore
	logger    *slog.Logger
}

func NewMenuItemHandler(ms *store.MenuItemStore, hub *websocket.Hub, logger *slog.Logger) *MenuItemHandler {
	return &MenuItemHandler{broadcaster: broadcaster{hub}, menuStore: ms, logger: logger}
}

type menuItemRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	RecipeID       *int64  `json:"recipe_id"`
	BaseCost       float64 `json:"base_cost"`
	SuggestedPrice float64 `json:"suggested_price"`
}

func (req menuItemRequest) input() (store.MenuItemInput, error) {
	in := store.MenuItemInput{
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Category:       strings.TrimSpace(req.Category),
		RecipeID:       req.RecipeID,
		BaseCost:       req.BaseCost,
		SuggestedPrice: req.SuggestedPrice,
	}
	if in.Name == "" {
		return in, errors.New("name is required")
	}
	if in.BaseCost < 0 || in.SuggestedPrice < 0 {
		return in, errors.New("base_cost and suggested_price must not be negative")
	}
	return in, nil
}

func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.menuStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list menu items", err)
		return
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
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
	item, err := h.menuStore.Create(r.Context(), userID, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "unknown recipe")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to create menu item", err)
		return
	}

	h.broadcast(userID, websocket.EntityMenuItem, websocket.ActionCreated, item.ID)
	writeJSON(w, http.StatusCreated, item)
}

func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req menuItemRequest
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
	existing, err := h.menuStore.GetByID(r.Context(), userID, id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get menu item", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}

	item, err := h.menuStore.Update(r.Context(), userID, id, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "unknown recipe")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to update menu item", err)
		return
	}

	h.broadcast(userID, websocket.EntityMenuItem, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, item)
}

func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	err = h.menuStore.Delete(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to delete menu item", err)
		return
	}

	h.broadcast(userID, websocket.EntityMenuItem, websocket.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// RefreshCost copies the linked recipe's current unit cost into base_cost.
func (h *MenuItemHandler) RefreshCost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	item, err := h.menuStore.RefreshBaseCost(r.Context(), userID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	case errors.Is(err, store.ErrNoRecipe):
		writeError(w, http.StatusConflict, "menu item has no recipe")
		return
	case err != nil:
		serverError(w, r, h.logger, "failed to refresh menu item cost", err)
		return
	}

	h.broadcast(userID, websocket.EntityMenuItem, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, item)
}
