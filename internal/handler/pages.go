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

	"github.com/go-chi/chi/v5"

	"minicms/internal/middleware"
	"minicms/internal/model"
	"minicms/internal/render"
	"minicms/internal/service"
	"minicms/internal/store"
)

// PageHandler handles public and admin page routes.
type PageHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(db *sql.DB, renderer *render.Renderer) *PageHandler {
	return &PageHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
	}
}

// PageFormData carries submitted values back into the page form.
type PageFormData struct {
	Title   string
	Content string
}

// PageListData holds the page listing for index views.
type PageListData struct {
	Pages []store.Page
}

// Home renders the public page index.
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "pages/index", "Pages")
}

// Site renders the member page listing.
// GET /site
func (h *PageHandler) Site(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "pages/site", "Site")
}

func (h *PageHandler) renderList(w http.ResponseWriter, r *http.Request, template, title string) {
	pages, err := h.queries.ListPages(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list pages", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, template, render.TemplateData{
		Title: title,
		User:  middleware.GetUser(r),
		Data:  PageListData{Pages: pages},
	}); err != nil {
		logAndInternalError(w, "render error", "error", err, "template", template)
	}
}

// View renders a single page.
// GET /page/{id}
func (h *PageHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	page, ok := requireEntityWithError(w, "page", id,
		func(id int64) (store.Page, error) { return h.queries.GetPageByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.renderer.Render(w, r, "pages/page", render.TemplateData{
		Title: page.Title,
		User:  middleware.GetUser(r),
		Data:  page,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err, "template", "pages/page")
	}
}

// NewForm renders the page-creation form. Serves both the admin panel
// and the explicit creation route.
// GET /admin, GET /add
func (h *PageHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "admin/add_page", render.TemplateData{
		Title: "New Page",
		User:  middleware.GetUser(r),
		Data:  PageFormData{},
	}); err != nil {
		logAndInternalError(w, "render error", "error", err, "template", "admin/add_page")
	}
}

// Create handles the page-creation form submission.
// POST /add
func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectAdmin) {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	content := r.FormValue("content")

	fieldErrors := make(map[string]string)
	if title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if strings.TrimSpace(content) == "" {
		fieldErrors["content"] = "Content is required"
	}
	if len(fieldErrors) > 0 {
		if err := h.renderer.RenderWithStatus(w, r, http.StatusBadRequest, "admin/add_page", render.TemplateData{
			Title:  "New Page",
			User:   middleware.GetUser(r),
			Data:   PageFormData{Title: title, Content: content},
			Errors: fieldErrors,
		}); err != nil {
			logAndInternalError(w, "render error", "error", err, "template", "admin/add_page")
		}
		return
	}

	now := time.Now()
	page, err := h.queries.CreatePage(r.Context(), store.CreatePageParams{
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		logAndInternalError(w, "failed to create page", "error", err)
		return
	}

	slog.Info("page created", "page_id", page.ID, "title", page.Title, "user_id", middleware.GetUserID(r))
	_ = h.eventService.LogPageEvent(r.Context(), model.EventLevelInfo,
		"Page created", middleware.GetUserIDPtr(r), middleware.ClientIP(r),
		map[string]any{"page_id": page.ID, "title": page.Title})

	flashSuccess(w, r, h.renderer, redirectRoot, "Page created")
}

// Delete handles page deletion.
// POST /delete/{id}
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	if err := h.queries.DeletePage(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		logAndInternalError(w, "failed to delete page", "error", err, "page_id", id)
		return
	}

	slog.Info("page deleted", "page_id", id, "user_id", middleware.GetUserID(r))
	_ = h.eventService.LogPageEvent(r.Context(), model.EventLevelInfo,
		"Page deleted", middleware.GetUserIDPtr(r), middleware.ClientIP(r),
		map[string]any{"page_id": id})

	flashSuccess(w, r, h.renderer, redirectRoot, "Page deleted")
}
