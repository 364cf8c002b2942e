package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/clubledger/internal/backup"
	"github.com/dukerupert/clubledger/internal/config"
	"github.com/dukerupert/clubledger/internal/handler"
	"github.com/dukerupert/clubledger/internal/middleware"
	"github.com/dukerupert/clubledger/internal/store"
	ws "github.com/dukerupert/clubledger/internal/websocket"
)

type Server struct {
	db            *sql.DB
	cfg           *config.Config
	hub           *ws.Hub
	authH         *handler.AuthHandler
	ingredientH   *handler.IngredientHandler
	recipeH       *handler.RecipeHandler
	eventH        *handler.EventHandler
	generalCostH  *handler.GeneralCostHandler
	menuItemH     *handler.MenuItemHandler
	dashboardH    *handler.DashboardHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

// BackupConfig maps the backup section of cfg onto the manager's config.
func BackupConfig(cfg config.BackupConfig) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		},
		Passphrase:    cfg.Passphrase,
		Interval:      cfg.Interval,
		RetentionDays: cfg.RetentionDays,
		UploadRetries: cfg.UploadRetries,
	}
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	ingredientStore := store.NewIngredientStore(db)
	recipeStore := store.NewRecipeStore(db)
	eventStore := store.NewEventStore(db)
	generalCostStore := store.NewGeneralCostStore(db)
	menuItemStore := store.NewMenuItemStore(db)
	backupStore := store.NewBackupStore(db)

	backupLogger := logger.With("component", "backup")
	backupMgr := backup.NewManager(BackupConfig(cfg.Backup), db, backupStore, logger, func(s backup.Status) {
		backupLogger.Debug("backup status", "state", s.State, "in_progress", s.InProgress, "error", s.Error)
	})

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, cfg.Server.SecureCookies, cfg.Server.AllowRegistration, logger.With("component", "auth")),
		ingredientH:   handler.NewIngredientHandler(ingredientStore, hub, logger.With("component", "ingredient")),
		recipeH:       handler.NewRecipeHandler(recipeStore, ingredientStore, hub, logger.With("component", "recipe")),
		eventH:        handler.NewEventHandler(eventStore, hub, logger.With("component", "event")),
		generalCostH:  handler.NewGeneralCostHandler(generalCostStore, hub, logger.With("component", "general_cost")),
		menuItemH:     handler.NewMenuItemHandler(menuItemStore, hub, logger.With("component", "menu_item")),
		dashboardH:    handler.NewDashboardHandler(eventStore, generalCostStore, cfg.Dashboard.Limit, logger.With("component", "dashboard")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, hub, logger.With("component", "backup_handler")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler("register", s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler("login", s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(bucket string, h http.HandlerFunc) http.HandlerFunc {
	limit := s.cfg.Server.LoginRateLimit
	if limit <= 0 {
		return h
	}
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIP(bucket), limit, time.Minute)
	wrapped := rl(h)
	return wrapped.ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me", s.authH.UpdateMe)

	// Ingredients
	mux.HandleFunc("GET /api/ingredients", s.ingredientH.List)
	mux.HandleFunc("POST /api/ingredients", s.ingredientH.Create)
	mux.HandleFunc("GET /api/ingredients/{id}", s.ingredientH.Get)
	mux.HandleFunc("PUT /api/ingredients/{id}", s.ingredientH.Update)
	mux.HandleFunc("DELETE /api/ingredients/{id}", s.ingredientH.Delete)

	// Recipes
	mux.HandleFunc("GET /api/recipes", s.recipeH.List)
	mux.HandleFunc("POST /api/recipes", s.recipeH.Create)
	mux.HandleFunc("POST /api/recipes/preview", s.recipeH.Preview)
	mux.HandleFunc("GET /api/recipes/{id}", s.recipeH.Get)
	mux.HandleFunc("PUT /api/recipes/{id}", s.recipeH.Update)
	mux.HandleFunc("DELETE /api/recipes/{id}", s.recipeH.Delete)

	// Events and their items
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)
	mux.HandleFunc("POST /api/events/{id}/items", s.eventH.CreateItem)
	mux.HandleFunc("PUT /api/events/{id}/items/{item_id}", s.eventH.UpdateItem)
	mux.HandleFunc("DELETE /api/events/{id}/items/{item_id}", s.eventH.DeleteItem)
	mux.HandleFunc("POST /api/events/{id}/recalculate", s.eventH.Recalculate)

	// General costs
	mux.HandleFunc("GET /api/general-costs", s.generalCostH.List)
	mux.HandleFunc("POST /api/general-costs", s.generalCostH.Create)
	mux.HandleFunc("GET /api/general-costs/summary", s.generalCostH.Summary)
	mux.HandleFunc("PUT /api/general-costs/{id}", s.generalCostH.Update)
	mux.HandleFunc("DELETE /api/general-costs/{id}", s.generalCostH.Delete)

	// Menu items
	mux.HandleFunc("GET /api/menu-items", s.menuItemH.List)
	mux.HandleFunc("POST /api/menu-items", s.menuItemH.Create)
	mux.HandleFunc("PUT /api/menu-items/{id}", s.menuItemH.Update)
	mux.HandleFunc("DELETE /api/menu-items/{id}", s.menuItemH.Delete)
	mux.HandleFunc("POST /api/menu-items/{id}/refresh-cost", s.menuItemH.RefreshCost)

	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Get)

	// Backups (admin only)
	mux.Handle("GET /api/backups", middleware.RequireAdmin(http.HandlerFunc(s.backupH.List)))
	mux.Handle("POST /api/backups", middleware.RequireAdmin(http.HandlerFunc(s.backupH.Run)))
	mux.Handle("GET /api/backups/{id}/download", middleware.RequireAdmin(http.HandlerFunc(s.backupH.Download)))

	// WebSocket change feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.Server.AllowedOrigins, s.logger.With("component", "websocket")))
}
