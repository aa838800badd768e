// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for all routes.
package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"minicms/internal/auth"
	"minicms/internal/middleware"
	"minicms/internal/model"
	"minicms/internal/render"
	"minicms/internal/service"
	"minicms/internal/session"
	"minicms/internal/store"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		eventService:    service.NewEventService(db),
		loginProtection: lp,
	}
}

// LoginFormData carries submitted values back into the login form.
type LoginFormData struct {
	Username string
}

// LoginForm renders the login page.
// Redirects already-authenticated users: admin → panel, others → member listing.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), session.KeyUserID); userID > 0 {
		if h.sessionManager.GetBool(r.Context(), session.KeyIsAdmin) {
			http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, redirectSite, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{
		Title: "Sign In",
	}); err != nil {
		logAndInternalError(w, "render error", "error", err, "template", "auth/login")
	}
}

// Login handles the login form submission.
// Unknown username and wrong password produce the same inline error so the
// response never reveals whether an account exists.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	formData := LoginFormData{Username: username}

	fieldErrors := make(map[string]string)
	if username == "" {
		fieldErrors["username"] = "Username is required"
	}
	if password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if len(fieldErrors) > 0 {
		h.renderLoginError(w, r, http.StatusBadRequest, formData, fieldErrors)
		return
	}

	clientIP := middleware.ClientIP(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(username); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
				"Login attempt on locked account", nil, clientIP, map[string]any{"username": username})
			h.renderLoginError(w, r, http.StatusTooManyRequests, formData, map[string]string{
				"form": fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)),
			})
			return
		}
	}

	user, err := h.queries.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "username", username)
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
				"Login failed: user not found", nil, clientIP, map[string]any{"username": username})
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Record failed attempt even for non-existent users to prevent enumeration
		h.recordFailureAndRespond(w, r, username, formData)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		h.renderInvalidCredentials(w, r, formData)
		return
	}

	if !valid {
		slog.Debug("invalid password attempt", "username", username)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
			"Login failed: invalid password", &user.ID, clientIP, map[string]any{"username": username})
		h.recordFailureAndRespond(w, r, username, formData)
		return
	}

	// Clear failed attempts on successful login
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(username)
	}

	// Re-hash password if it uses old/expensive parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
		// Don't block login on this error
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	// Snapshot identity and admin flag for the lifetime of the session.
	h.sessionManager.Put(r.Context(), session.KeyUserID, user.ID)
	h.sessionManager.Put(r.Context(), session.KeyIsAdmin, user.IsAdmin)

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo,
		"User logged in", &user.ID, clientIP, map[string]any{"username": user.Username})

	h.renderer.SetFlash(r, "Welcome back, "+user.Username, "success")

	if user.IsAdmin {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
	} else {
		http.Redirect(w, r, redirectSite, http.StatusSeeOther)
	}
}

// Logout destroys the session and redirects to the login page.
// Safe to call for anonymous requests.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), session.KeyUserID)

	// Log the event before destroying the session
	if userID > 0 {
		clientIP := middleware.ClientIP(r)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo,
			"User logged out", &userID, clientIP, nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)

	flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been logged out", "info")
}

// recordFailureAndRespond records a failed login attempt and renders the
// appropriate inline error, including lockout notices.
func (h *AuthHandler) recordFailureAndRespond(w http.ResponseWriter, r *http.Request, username string, formData LoginFormData) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(username); locked {
			h.renderLoginError(w, r, http.StatusTooManyRequests, formData, map[string]string{
				"form": fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration)),
			})
			return
		}
	}
	h.renderInvalidCredentials(w, r, formData)
}

// renderInvalidCredentials renders the login form with the unified
// invalid-credentials error.
func (h *AuthHandler) renderInvalidCredentials(w http.ResponseWriter, r *http.Request, formData LoginFormData) {
	h.renderLoginError(w, r, http.StatusUnauthorized, formData, map[string]string{
		"form": "Invalid username or password",
	})
}

func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, status int, formData LoginFormData, fieldErrors map[string]string) {
	if err := h.renderer.RenderWithStatus(w, r, status, "auth/login", render.TemplateData{
		Title:  "Sign In",
		Data:   formData,
		Errors: fieldErrors,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err, "template", "auth/login")
	}
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
