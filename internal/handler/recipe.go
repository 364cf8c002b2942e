package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/costing"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/store"
	"github.com/dukerupert/clubledger/internal/websocket"
)

type RecipeHandler struct {
	broadcaster
	recipeStore     *store.RecipeStore
	ingredientStore *store.IngredientStore
	logger          *slog.Logger
}

func NewRecipeHandler(rs *store.RecipeStore, is *store.IngredientStore, hub *websocket.Hub, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		broadcaster:     broadcaster{hub},
		recipeStore:     rs,
		ingredientStore: is,
		logger:          logger,
	}
}

// quantity accepts a JSON number or string. Anything that does not read as a
// non-negative decimal becomes 0.
type quantity float64

func (q *quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			*q = 0
			return nil
		}
	} else {
		s = string(data)
	}
	*q = quantity(costing.ParseQuantity(s))
	return nil
}

type recipeLineRequest struct {
	IngredientID int64    `json:"ingredient_id"`
	Quantity     quantity `json:"quantity"`
}

// recipeRequest carries batch-total quantities, as entered.
type recipeRequest struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	YieldQuantity int                 `json:"yield_quantity"`
	Lines         []recipeLineRequest `json:"lines"`
}

type recipeResponse struct {
	model.Recipe
	Lines     []costing.Row `json:"lines"`
	BatchCost float64       `json:"batch_cost"`
	UnitCost  float64       `json:"unit_cost"`
}

func newRecipeResponse(r model.Recipe, ed *costing.Editor) recipeResponse {
	return recipeResponse{
		Recipe:    r,
		Lines:     ed.Rows(),
		BatchCost: ed.BatchCost(),
		UnitCost:  ed.UnitCost(),
	}
}

// badRequestError marks input the client must fix.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// editorFor validates req and builds an editor against the user's catalog.
// Repeated ingredients keep their first quantity.
func (h *RecipeHandler) editorFor(r *http.Request, req *recipeRequest) (*costing.Editor, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return nil, &badRequestError{"name is required"}
	}
	if err := costing.ValidateYield(req.YieldQuantity); err != nil {
		return nil, &badRequestError{err.Error()}
	}

	catalog, err := h.ingredientStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	byID := make(map[int64]model.Ingredient, len(catalog))
	for _, ing := range catalog {
		byID[ing.ID] = ing
	}

	ed := costing.NewEditor(req.YieldQuantity, nil)
	for _, l := range req.Lines {
		ing, ok := byID[l.IngredientID]
		if !ok {
			return nil, &badRequestError{fmt.Sprintf("unknown ingredient %d", l.IngredientID)}
		}
		if idx, added := ed.AddIngredient(ing); added {
			ed.SetQuantityValue(idx, float64(l.Quantity))
		}
	}
	return ed, nil
}

// editorError answers a failed editorFor call.
func (h *RecipeHandler) editorError(w http.ResponseWriter, r *http.Request, err error) {
	var bad *badRequestError
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.msg)
		return
	}
	serverError(w, r, h.logger, "failed to load ingredients", err)
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipeStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list recipes", err)
		return
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

// Get returns the recipe with its lines shown as batch totals next to the
// stored per-unit quantities.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := auth.UserID(r.Context())

	recipe, err := h.recipeStore.GetByID(r.Context(), userID, id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get recipe", err)
		return
	}
	if recipe == nil {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}

	stored, err := h.recipeStore.ListIngredients(r.Context(), userID, id)
	if err != nil {
		serverError(w, r, h.logger, "failed to list recipe ingredients", err)
		return
	}
	totals := costing.DenormalizeForEditing(costing.FromRecipeIngredients(stored), recipe.YieldQuantity)
	writeJSON(w, http.StatusOK, newRecipeResponse(*recipe, costing.NewEditor(recipe.YieldQuantity, totals)))
}

// Preview costs a recipe without saving it.
func (h *RecipeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = "preview"
	}
	ed, err := h.editorFor(r, &req)
	if err != nil {
		h.editorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecipeResponse(model.Recipe{
		Name:          req.Name,
		Description:   req.Description,
		YieldQuantity: req.YieldQuantity,
	}, ed))
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0)
}

func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.save(w, r, id)
}

func (h *RecipeHandler) save(w http.ResponseWriter, r *http.Request, id int64) {
	var req recipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ed, err := h.editorFor(r, &req)
	if err != nil {
		h.editorError(w, r, err)
		return
	}

	userID := auth.UserID(r.Context())
	recipe, err := h.recipeStore.Save(r.Context(), userID, id, store.RecipeInput{
		Name:          req.Name,
		Description:   req.Description,
		YieldQuantity: req.YieldQuantity,
	}, ed.PerUnitLines())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to save recipe", err)
		return
	}

	// Reload so the response carries stored line ids.
	stored, err := h.recipeStore.ListIngredients(r.Context(), userID, recipe.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to list recipe ingredients", err)
		return
	}
	totals := costing.DenormalizeForEditing(costing.FromRecipeIngredients(stored), recipe.YieldQuantity)
	resp := newRecipeResponse(*recipe, costing.NewEditor(recipe.YieldQuantity, totals))

	status, action := http.StatusOK, websocket.ActionUpdated
	if id == 0 {
		status, action = http.StatusCreated, websocket.ActionCreated
	}
	h.broadcast(userID, websocket.EntityRecipe, action, recipe.ID)
	writeJSON(w, status, resp)
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	err = h.recipeStore.Delete(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to delete recipe", err)
		return
	}

	h.broadcast(userID, websocket.EntityRecipe, websocket.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}
