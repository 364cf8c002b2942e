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

type IngredientHandler struct {
	broadcaster
	ingredientStore *store.IngredientStore
	logger          *slog.Logger
}

func NewIngredientHandler(is *store.IngredientStore, hub *websocket.Hub, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{broadcaster: broadcaster{hub}, ingredientStore: is, logger: logger}
}

type ingredientRequest struct {
	Name          string   `json:"name"`
	UnitOfMeasure string   `json:"unit_of_measure"`
	UnitCost      *float64 `json:"unit_cost"`
}

func (req *ingredientRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.UnitOfMeasure = strings.TrimSpace(req.UnitOfMeasure)
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.UnitOfMeasure == "" {
		return errors.New("unit_of_measure is required")
	}
	if req.UnitCost == nil {
		return errors.New("unit_cost is required")
	}
	if *req.UnitCost < 0 {
		return errors.New("unit_cost must not be negative")
	}
	return nil
}

type ingredientResponse struct {
	model.Ingredient
	UsageCount int `json:"usage_count"`
}

func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.ingredientStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list ingredients", err)
		return
	}
	if ingredients == nil {
		ingredients = []model.Ingredient{}
	}
	writeJSON(w, http.StatusOK, ingredients)
}

func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := auth.UserID(r.Context())

	ing, err := h.ingredientStore.GetByID(r.Context(), userID, id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get ingredient", err)
		return
	}
	if ing == nil {
		writeError(w, http.StatusNotFound, "ingredient not found")
		return
	}
	usage, err := h.ingredientStore.UsageCount(r.Context(), userID, id)
	if err != nil {
		serverError(w, r, h.logger, "failed to count ingredient usage", err)
		return
	}
	writeJSON(w, http.StatusOK, ingredientResponse{Ingredient: *ing, UsageCount: usage})
}

func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	ing, err := h.ingredientStore.Create(r.Context(), userID, req.Name, req.UnitOfMeasure, *req.UnitCost)
	if err != nil {
		serverError(w, r, h.logger, "failed to create ingredient", err)
		return
	}

	h.broadcast(userID, websocket.EntityIngredient, websocket.ActionCreated, ing.ID)
	writeJSON(w, http.StatusCreated, ing)
}

// Update changes an ingredient. Recipes using it are re-costed by the store.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ingredientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	ing, err := h.ingredientStore.Update(r.Context(), userID, id, req.Name, req.UnitOfMeasure, *req.UnitCost)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "ingredient not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to update ingredient", err)
		return
	}

	h.broadcast(userID, websocket.EntityIngredient, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, ing)
}

func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	err = h.ingredientStore.Delete(r.Context(), userID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "ingredient not found")
		return
	case errors.Is(err, store.ErrIngredientInUse):
		writeError(w, http.StatusConflict, "ingredient is used by a recipe")
		return
	case err != nil:
		serverError(w, r, h.logger, "failed to delete ingredient", err)
		return
	}

	h.broadcast(userID, websocket.EntityIngredient, websocket.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}
