package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gymvault/gymvault/internal/auth"
	"github.com/gymvault/gymvault/internal/backup"
	"github.com/gymvault/gymvault/internal/drive"
	"github.com/gymvault/gymvault/internal/logging"
	"github.com/gymvault/gymvault/internal/model"
	"github.com/gymvault/gymvault/internal/state"
)

// Health check endpoint
func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	}
}

// POST /api/auth/login - trade the API password for a bearer token
func handleLogin(a *auth.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.IsEnabled() {
			respondError(w, http.StatusBadRequest, "authentication is disabled")
			return
		}

		var req struct {
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !a.ValidatePassword(req.Password) {
			respondError(w, http.StatusUnauthorized, "invalid password")
			return
		}

		token, err := a.GenerateToken()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to generate token")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int(auth.TokenExpiry.Seconds()),
		})
		respondJSON(w, map[string]interface{}{"success": true, "token": token})
	}
}

// POST /api/auth/logout - invalidate the caller's token
func handleLogout(a *auth.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := auth.TokenFromRequest(r); token != "" {
			a.InvalidateToken(token)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
		respondJSON(w, map[string]interface{}{"success": true})
	}
}

// POST /api/backup - create a backup, optionally to a caller-chosen path
func handleBackup(mgr Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := mgr.CreateBackup(r.Context(), req.Path)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true, "path": rec.Path})
	}
}

// POST /api/backup/enhanced - create a backup with an optional Drive upload.
// An upload failure still reports success; driveFileId is simply absent then.
func handleBackupEnhanced(mgr Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path             string                  `json:"path"`
			UploadToDrive    bool                    `json:"uploadToDrive"`
			DriveCredentials *model.DriveCredentials `json:"driveCredentials"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := mgr.CreateBackupEnhanced(r.Context(), backup.EnhancedOptions{
			CustomPath:    req.Path,
			UploadToDrive: req.UploadToDrive,
			Credentials:   req.DriveCredentials,
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := map[string]interface{}{"success": true, "path": rec.Path}
		if rec.RemoteID != "" {
			resp["driveFileId"] = rec.RemoteID
		}
		respondJSON(w, resp)
	}
}

// GET /api/backup/path - suggest the default destination for the next backup.
// There is no native file dialog on this side; the client shows its own and
// uses this as the preselected location.
func handleBackupPath(mgr Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]interface{}{
			"success":  true,
			"filePath": mgr.SuggestBackupPath(),
		})
	}
}

// POST /api/restore - replace the live database with a backup file.
// An empty path mirrors a canceled file picker and is not an error.
func handleRestore(mgr Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Path == "" {
			respondJSON(w, map[string]interface{}{"success": false, "canceled": true})
			return
		}

		if err := mgr.Restore(r.Context(), req.Path); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// Connections elsewhere in the process now point at the old file.
		respondJSON(w, map[string]interface{}{"success": true, "needRestart": true})
	}
}

// POST /api/repair - run the integrity repair sequence on the live database
func handleRepair(mgr Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.Repair(r.Context()); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true})
	}
}

// PUT /api/schedule - replace the recurring backup configuration
func handleSetSchedule(mgr Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Schedule         string                  `json:"schedule"`
			DriveCredentials *model.DriveCredentials `json:"driveCredentials"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		freq, err := model.ParseFrequency(req.Schedule)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		err = mgr.ScheduleRecurringBackup(model.ScheduleConfig{
			Frequency: freq,
			Drive:     req.DriveCredentials,
		})
		if err != nil {
			status := http.StatusInternalServerError
			var schedErr *backup.ScheduleError
			if errors.As(err, &schedErr) {
				status = http.StatusBadRequest
			}
			respondError(w, status, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true})
	}
}

// GET /api/schedule - the active schedule, next run time and latest run
func handleGetSchedule(mgr Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, mgr.ActiveSchedule(r.Context()))
	}
}

// GET /api/runs - scheduled-run history, newest first
func handleGetRuns(runs *state.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		history, err := runs.RecentRuns(r.Context(), limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, history)
	}
}

// GET /api/logs - query structured logs by operation, run, level and limit
func handleGetLogs(logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := logging.QueryOptions{
			Operation: r.URL.Query().Get("operation"),
			Limit:     200,
		}
		if levelStr := r.URL.Query().Get("level"); levelStr != "" {
			opts.Level = logging.ParseLevel(strings.ToLower(levelStr))
		}
		if runStr := r.URL.Query().Get("runId"); runStr != "" {
			runID, err := strconv.ParseInt(runStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid runId")
				return
			}
			opts.RunID = runID
		}
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
				opts.Limit = parsed
			}
		}

		entries, err := logger.Query(opts)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, entries)
	}
}

// POST /api/drive/auth-url - build the OAuth consent URL for the given app
// credentials. Credentials travel in the body so they never hit access logs.
func handleDriveAuthURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds model.DriveCredentials
		if err := decodeJSON(r, &creds); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		url, err := drive.AuthURL(creds)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true, "authUrl": url})
	}
}

// POST /api/drive/exchange - trade a consent code for a refresh token
func handleDriveExchange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code             string                 `json:"code"`
			DriveCredentials model.DriveCredentials `json:"driveCredentials"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Code == "" {
			respondError(w, http.StatusBadRequest, "authorization code is required")
			return
		}

		token, err := drive.ExchangeCode(r.Context(), req.DriveCredentials, req.Code)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success":      true,
			"refreshToken": token.RefreshToken,
		})
	}
}

// decodeJSON reads a JSON body into dst, treating an empty body as all-zero
// fields so optional request bodies stay optional.
func decodeJSON(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Helper to respond with JSON
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes the façade's error shape with the given status.
func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	}); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}
