package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/backup"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/store"
	"github.com/dukerupert/clubledger/internal/websocket"
)

// BackupHandler exposes the backup manager to admins.
type BackupHandler struct {
	broadcaster
	manager     *backup.Manager
	backupStore *store.BackupStore
	logger      *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, hub *websocket.Hub, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{broadcaster: broadcaster{hub}, manager: m, backupStore: bs, logger: logger}
}

type backupListResponse struct {
	Status  backup.Status  `json:"status"`
	Backups []model.Backup `json:"backups"`
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backupStore.List(r.Context(), 50)
	if err != nil {
		serverError(w, r, h.logger, "failed to list backups", err)
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backupListResponse{Status: h.manager.Status(), Backups: backups})
}

// Run takes a backup now and answers once it has been uploaded.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, err := h.manager.RunNow(r.Context(), &userID)
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	case errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusConflict, "a backup is already running")
		return
	case err != nil:
		serverError(w, r, h.logger, "backup failed", err)
		return
	}

	record, err := h.backupStore.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, r, h.logger, "failed to load backup", err)
		return
	}
	h.broadcast(userID, websocket.EntityBackup, websocket.ActionCreated, id)
	writeJSON(w, http.StatusCreated, record)
}

// Download streams the encrypted snapshot.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
		return
	case err != nil:
		serverError(w, r, h.logger, "failed to download backup", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=clubledger-backup-"+strconv.FormatInt(id, 10)+".db.enc")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("backup download interrupted", "backup_id", id, "error", err)
	}
}
