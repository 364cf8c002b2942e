package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/rollup"
	"github.com/dukerupert/clubledger/internal/store"
	"golang.org/x/sync/errgroup"
)

const maxDashboardLimit = 100

type DashboardHandler struct {
	eventStore   *store.EventStore
	costStore    *store.GeneralCostStore
	defaultLimit int
	logger       *slog.Logger
}

func NewDashboardHandler(es *store.EventStore, cs *store.GeneralCostStore, defaultLimit int, logger *slog.Logger) *DashboardHandler {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &DashboardHandler{eventStore: es, costStore: cs, defaultLimit: defaultLimit, logger: logger}
}

type dashboardResponse struct {
	Summary      rollup.DashboardSummary `json:"summary"`
	RecentEvents []model.Event           `json:"recent_events"`
	RecentCosts  []model.GeneralCost     `json:"recent_costs"`
}

// Get summarises the user's most recent events and general costs. ?limit
// caps both windows.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDashboardLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	userID := auth.UserID(r.Context())

	var (
		events []model.Event
		costs  []model.GeneralCost
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		events, err = h.eventStore.ListRecent(ctx, userID, limit)
		return err
	})
	g.Go(func() (err error) {
		costs, err = h.costStore.ListRecent(ctx, userID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		serverError(w, r, h.logger, "failed to load dashboard", err)
		return
	}

	if events == nil {
		events = []model.Event{}
	}
	if costs == nil {
		costs = []model.GeneralCost{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Summary:      rollup.Dashboard(events, costs),
		RecentEvents: events,
		RecentCosts:  costs,
	})
}
