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
	"golang.org/x/sync/errgroup"
)

type EventHandler struct {
	broadcaster
	eventStore *store.EventStore
	logger     *slog.Logger
}

func NewEventHandler(es *store.EventStore, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{broadcaster: broadcaster{hub}, eventStore: es, logger: logger}
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
	Status      string `json:"status"`
}

func (req eventRequest) input() (store.EventInput, error) {
	in := store.EventInput{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      model.EventStatus(strings.TrimSpace(req.Status)),
	}
	if in.Title == "" {
		return in, errors.New("title is required")
	}
	date, err := parseDate(req.EventDate)
	if err != nil {
		return in, errors.New("event_date: " + err.Error())
	}
	in.EventDate = date
	if in.Status == "" {
		in.Status = model.EventStatusPlanning
	}
	if !in.Status.Valid() {
		return in, errors.New("status must be planning, confirmed, completed, or cancelled")
	}
	return in, nil
}

type eventItemRequest struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	UnitCost  *float64 `json:"unit_cost"`
	Quantity  *int     `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
}

func (req eventItemRequest) input() (store.EventItemInput, error) {
	in := store.EventItemInput{
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
	}
	if in.Name == "" {
		return in, errors.New("name is required")
	}
	if req.UnitCost == nil || *req.UnitCost < 0 {
		return in, errors.New("unit_cost must be a non-negative number")
	}
	if req.UnitPrice == nil || *req.UnitPrice < 0 {
		return in, errors.New("unit_price must be a non-negative number")
	}
	if req.Quantity == nil || *req.Quantity < 1 {
		return in, errors.New("quantity must be at least 1")
	}
	in.UnitCost, in.Quantity, in.UnitPrice = *req.UnitCost, *req.Quantity, *req.UnitPrice
	return in, nil
}

type eventResponse struct {
	model.Event
	Items   []model.EventItem `json:"items"`
	Summary rollup.Summary    `json:"summary"`
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list events", err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Get returns the event with its items and financial summary. The event row
// and the items are read concurrently.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := auth.UserID(r.Context())

	var (
		event *model.Event
		items []model.EventItem
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		event, err = h.eventStore.GetByID(ctx, userID, id)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = h.eventStore.ListItems(ctx, userID, id)
		return err
	})
	if err := g.Wait(); err != nil {
		serverError(w, r, h.logger, "failed to get event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if items == nil {
		items = []model.EventItem{}
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Event:   *event,
		Items:   items,
		Summary: rollup.Summarize(items),
	})
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
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
	event, err := h.eventStore.Create(r.Context(), userID, in)
	if err != nil {
		serverError(w, r, h.logger, "failed to create event", err)
		return
	}

	h.broadcast(userID, websocket.EntityEvent, websocket.ActionCreated, event.ID)
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req eventRequest
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
	event, err := h.eventStore.Update(r.Context(), userID, id, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to update event", err)
		return
	}

	h.broadcast(userID, websocket.EntityEvent, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	err = h.eventStore.Delete(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to delete event", err)
		return
	}

	h.broadcast(userID, websocket.EntityEvent, websocket.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req eventItemRequest
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
	item, err := h.eventStore.CreateItem(r.Context(), userID, eventID, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to create event item", err)
		return
	}

	h.broadcast(userID, websocket.EntityEventItem, websocket.ActionCreated, item.ID)
	h.broadcast(userID, websocket.EntityEvent, websocket.ActionUpdated, eventID)
	writeJSON(w, http.StatusCreated, item)
}

func (h *EventHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := parsePathID(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req eventItemRequest
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
	item, err := h.eventStore.UpdateItem(r.Context(), userID, eventID, itemID, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event item not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to update event item", err)
		return
	}

	h.broadcast(userID, websocket.EntityEventItem, websocket.ActionUpdated, itemID)
	h.broadcast(userID, websocket.EntityEvent, websocket.ActionUpdated, eventID)
	writeJSON(w, http.StatusOK, item)
}

func (h *EventHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := parsePathID(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	err = h.eventStore.DeleteItem(r.Context(), userID, eventID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event item not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to delete event item", err)
		return
	}

	h.broadcast(userID, websocket.EntityEventItem, websocket.ActionDeleted, itemID)
	h.broadcast(userID, websocket.EntityEvent, websocket.ActionUpdated, eventID)
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate rebuilds the event's cached totals from its items.
func (h *EventHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	event, err := h.eventStore.RecalculateTotals(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to recalculate event", err)
		return
	}

	h.broadcast(userID, websocket.EntityEvent, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, event)
}
