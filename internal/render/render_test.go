// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"

	"minicms/internal/store"
	"minicms/web"
)

func newTestRenderer(t *testing.T, sm *scs.SessionManager) *Renderer {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("getting templates fs: %v", err)
	}

	r, err := New(Config{TemplatesFS: templatesFS, SessionManager: sm, IsDev: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_ParsesAllTemplates(t *testing.T) {
	r := newTestRenderer(t, nil)

	for _, name := range []string{
		"pages/index",
		"pages/site",
		"pages/page",
		"auth/login",
		"admin/add_page",
		"admin/add_user",
	} {
		if _, ok := r.templates[name]; !ok {
			t.Errorf("template %q not parsed", name)
		}
	}
}

func TestRender(t *testing.T) {
	t.Run("renders page list through base layout", func(t *testing.T) {
		r := newTestRenderer(t, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		pages := []store.Page{{ID: 1, Title: "Hello", CreatedAt: time.Now()}}
		err := r.Render(rec, req, "pages/index", TemplateData{
			Title: "Pages",
			Data:  struct{ Pages []store.Page }{pages},
		})
		if err != nil {
			t.Fatalf("Render: %v", err)
		}

		body := rec.Body.String()
		if !strings.Contains(body, "<title>Pages &middot; MiniCMS</title>") {
			t.Error("base layout title missing")
		}
		if !strings.Contains(body, `<a href="/page/1">Hello</a>`) {
			t.Error("page link missing")
		}
		if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", got)
		}
	})

	t.Run("unknown template name returns error", func(t *testing.T) {
		r := newTestRenderer(t, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		if err := r.Render(rec, req, "pages/nope", TemplateData{}); err == nil {
			t.Fatal("expected error for unknown template")
		}
		if rec.Body.Len() != 0 {
			t.Error("nothing should be written on a missing template")
		}
	})

	t.Run("status code is passed through", func(t *testing.T) {
		r := newTestRenderer(t, nil)

		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		rec := httptest.NewRecorder()

		err := r.RenderWithStatus(rec, req, http.StatusBadRequest, "auth/login", TemplateData{
			Title:  "Sign In",
			Errors: map[string]string{"username": "Username is required"},
		})
		if err != nil {
			t.Fatalf("RenderWithStatus: %v", err)
		}

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rec.Body.String(), "Username is required") {
			t.Error("field error missing from body")
		}
	})
}

func TestFlash(t *testing.T) {
	sm := scs.New()
	sm.Lifetime = time.Hour
	r := newTestRenderer(t, sm)

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.SetFlash(req, "Saved", "success")

		if err := r.Render(w, req, "pages/index", TemplateData{
			Title: "Pages",
			Data:  struct{ Pages []store.Page }{},
		}); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "Saved") {
		t.Error("flash message missing")
	}
	if !strings.Contains(body, "flash-success") {
		t.Error("flash type class missing")
	}
}
