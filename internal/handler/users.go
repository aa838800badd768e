// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"minicms/internal/auth"
	"minicms/internal/middleware"
	"minicms/internal/model"
	"minicms/internal/render"
	"minicms/internal/service"
	"minicms/internal/store"
)

// UserHandler handles admin user-management routes.
type UserHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *sql.DB, renderer *render.Renderer) *UserHandler {
	return &UserHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
	}
}

// UserFormData carries submitted values back into the user form.
type UserFormData struct {
	Username string
	IsAdmin  bool
	Users    []store.User
}

// NewForm renders the user-creation form with the current account list.
// GET /add_user
func (h *UserHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, UserFormData{}, nil)
}

// Create handles the user-creation form submission. A duplicate username
// re-renders the form with an inline error rather than redirecting.
// POST /add_user
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteAddUser) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	isAdmin := r.FormValue("is_admin") == "1" || r.FormValue("is_admin") == "on"

	formData := UserFormData{Username: username, IsAdmin: isAdmin}

	fieldErrors := make(map[string]string)
	if username == "" {
		fieldErrors["username"] = "Username is required"
	}
	if password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if len(fieldErrors) > 0 {
		h.renderForm(w, r, http.StatusBadRequest, formData, fieldErrors)
		return
	}

	// Reject duplicates up front; the UNIQUE constraint backstops races.
	_, err := h.queries.GetUserByUsername(r.Context(), username)
	if err == nil {
		h.renderForm(w, r, http.StatusConflict, formData, map[string]string{
			"username": "Username already taken",
		})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logAndInternalError(w, "failed to check username", "error", err)
		return
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "failed to hash password", "error", err)
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// Lost the race against a concurrent insert
		if strings.Contains(err.Error(), "UNIQUE") {
			h.renderForm(w, r, http.StatusConflict, formData, map[string]string{
				"username": "Username already taken",
			})
			return
		}
		logAndInternalError(w, "failed to create user", "error", err)
		return
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username,
		"is_admin", user.IsAdmin, "created_by", middleware.GetUserID(r))
	_ = h.eventService.LogUserEvent(r.Context(), model.EventLevelInfo,
		"User account created", middleware.GetUserIDPtr(r), middleware.ClientIP(r),
		map[string]any{"username": user.Username, "is_admin": user.IsAdmin})

	flashSuccess(w, r, h.renderer, RouteAddUser, "User created")
}

// Delete handles user deletion by form user_id.
// POST /delete_user
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteAddUser) {
		return
	}

	id, err := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := h.queries.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		logAndInternalError(w, "failed to delete user", "error", err, "user_id", id)
		return
	}

	// Open sessions for the deleted account stay valid until logout.
	slog.Info("user deleted", "user_id", id, "deleted_by", middleware.GetUserID(r))
	_ = h.eventService.LogUserEvent(r.Context(), model.EventLevelInfo,
		"User account deleted", middleware.GetUserIDPtr(r), middleware.ClientIP(r),
		map[string]any{"user_id": id})

	flashSuccess(w, r, h.renderer, RouteAddUser, "User deleted")
}

func (h *UserHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, formData UserFormData, fieldErrors map[string]string) {
	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list users", "error", err)
		return
	}
	formData.Users = users

	if err := h.renderer.RenderWithStatus(w, r, status, "admin/add_user", render.TemplateData{
		Title:  "Users",
		User:   middleware.GetUser(r),
		Data:   formData,
		Errors: fieldErrors,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err, "template", "admin/add_user")
	}
}
