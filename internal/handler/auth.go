package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/middleware"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/store"
)

type AuthHandler struct {
	userStore         *store.UserStore
	sessionStore      *store.SessionStore
	secureCookies     bool
	allowRegistration bool
	logger            *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, secureCookies, allowRegistration bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:         us,
		sessionStore:      ss,
		secureCookies:     secureCookies,
		allowRegistration: allowRegistration,
		logger:            logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type sessionResponse struct {
	User      *model.User    `json:"user"`
	Profile   *model.Profile `json:"profile"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	sess, err := h.sessionStore.Create(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to create session", err)
		return
	}
	profile, err := h.userStore.GetProfile(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to load profile", err)
		return
	}

	h.setSessionCookie(w, sess)
	writeJSON(w, status, sessionResponse{
		User:      user,
		Profile:   profile,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Register creates an account. The first account on an empty database
// becomes admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allowRegistration {
		writeError(w, http.StatusForbidden, "registration is disabled")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to hash password", err)
		return
	}

	role := model.RoleMember
	count, err := h.userStore.Count(r.Context())
	if err != nil {
		serverError(w, r, h.logger, "failed to count users", err)
		return
	}
	if count == 0 {
		role = model.RoleAdmin
	}

	user, err := h.userStore.Create(r.Context(), req.Email, hash, req.FullName, role)
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to create user", err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "role", role)
	h.startSession(w, r, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		serverError(w, r, h.logger, "failed to look up user", err)
		return
	}
	// Same answer for unknown email and wrong password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		sess, err := h.sessionStore.GetByToken(r.Context(), token)
		if err != nil {
			h.logger.Error("logout lookup", "error", err)
		} else if sess != nil {
			if err := h.sessionStore.Delete(r.Context(), sess.ID); err != nil {
				h.logger.Error("logout delete session", "error", err)
			}
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		serverError(w, r, h.logger, "failed to load user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	profile, err := h.userStore.GetProfile(r.Context(), userID)
	if err != nil {
		serverError(w, r, h.logger, "failed to load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Profile: profile})
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		writeError(w, http.StatusBadRequest, "full_name is required")
		return
	}

	profile, err := h.userStore.UpdateProfile(r.Context(), auth.UserID(r.Context()), req.FullName)
	if err != nil {
		serverError(w, r, h.logger, "failed to update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
