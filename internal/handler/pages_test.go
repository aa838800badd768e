// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
)

// createPage inserts a page row directly, bypassing the handlers.
func (a *testApp) createPage(t *testing.T, title, content string) int64 {
	t.Helper()

	result, err := a.db.Exec(
		`INSERT INTO pages (title, content) VALUES (?, ?)`,
		title, content,
	)
	if err != nil {
		t.Fatalf("failed to create test page: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func TestPageListing(t *testing.T) {
	t.Run("home page lists titles without login", func(t *testing.T) {
		app := newTestApp(t)
		app.createPage(t, "Welcome", "Hello")
		app.createPage(t, "About", "Us")

		resp := app.get(t, RouteRoot)
		assertStatus(t, resp, http.StatusOK)
		body := readBody(t, resp)
		assertContains(t, body, "Welcome")
		assertContains(t, body, "About")
	})

	t.Run("site view requires login", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "alice", "password123", false)
		app.createPage(t, "Members Only", "Secret")

		resp := app.get(t, RouteSite)
		readBody(t, resp)
		assertRedirect(t, resp, http.StatusSeeOther, RouteLogin)

		readBody(t, app.login(t, "alice", "password123"))

		resp = app.get(t, RouteSite)
		assertStatus(t, resp, http.StatusOK)
		assertContains(t, readBody(t, resp), "Members Only")
	})
}

func TestPageView(t *testing.T) {
	t.Run("renders markdown content", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "alice", "password123", false)
		id := app.createPage(t, "Formatted", "# Heading\n\nSome *emphasis* here.")
		readBody(t, app.login(t, "alice", "password123"))

		resp := app.get(t, fmt.Sprintf("/page/%d", id))
		assertStatus(t, resp, http.StatusOK)
		body := readBody(t, resp)
		assertContains(t, body, "<h1>Heading</h1>")
		assertContains(t, body, "<em>emphasis</em>")
	})

	t.Run("unknown page returns 404", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "alice", "password123", false)
		readBody(t, app.login(t, "alice", "password123"))

		resp := app.get(t, "/page/9999")
		readBody(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
	})

	t.Run("non-numeric id returns 404", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "alice", "password123", false)
		readBody(t, app.login(t, "alice", "password123"))

		resp := app.get(t, "/page/abc")
		readBody(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
	})
}

func TestPageCreate(t *testing.T) {
	t.Run("admin creates a page that appears in the list", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "bob", "password123", true)
		readBody(t, app.login(t, "bob", "password123"))

		resp := app.postForm(t, RouteAdd, url.Values{
			"title":   {"T"},
			"content": {"C"},
		})
		readBody(t, resp)
		assertRedirect(t, resp, http.StatusSeeOther, RouteRoot)

		resp = app.get(t, RouteRoot)
		assertStatus(t, resp, http.StatusOK)
		assertContains(t, readBody(t, resp), "T")

		var count int64
		if err := app.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&count); err != nil {
			t.Fatalf("counting pages: %v", err)
		}
		if count != 1 {
			t.Errorf("page count = %d; want 1", count)
		}
	})

	t.Run("blank fields re-render the form with errors", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "bob", "password123", true)
		readBody(t, app.login(t, "bob", "password123"))

		resp := app.postForm(t, RouteAdd, url.Values{
			"title":   {"   "},
			"content": {""},
		})
		assertStatus(t, resp, http.StatusBadRequest)
		body := readBody(t, resp)
		assertContains(t, body, "Title is required")
		assertContains(t, body, "Content is required")

		var count int64
		if err := app.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&count); err != nil {
			t.Fatalf("counting pages: %v", err)
		}
		if count != 0 {
			t.Errorf("page count = %d; want 0", count)
		}
	})

	t.Run("regular user cannot create pages", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "alice", "password123", false)
		readBody(t, app.login(t, "alice", "password123"))

		resp := app.postForm(t, RouteAdd, url.Values{
			"title":   {"T"},
			"content": {"C"},
		})
		readBody(t, resp)
		assertStatus(t, resp, http.StatusForbidden)
	})
}

func TestPageDelete(t *testing.T) {
	t.Run("admin deletes a page", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "bob", "password123", true)
		id := app.createPage(t, "Doomed", "Gone soon")
		readBody(t, app.login(t, "bob", "password123"))

		resp := app.postForm(t, fmt.Sprintf("/delete/%d", id), nil)
		readBody(t, resp)
		assertRedirect(t, resp, http.StatusSeeOther, RouteRoot)

		var count int64
		if err := app.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&count); err != nil {
			t.Fatalf("counting pages: %v", err)
		}
		if count != 0 {
			t.Errorf("page count = %d; want 0", count)
		}
	})

	t.Run("deleting a missing page returns 404", func(t *testing.T) {
		app := newTestApp(t)
		app.createUser(t, "bob", "password123", true)
		readBody(t, app.login(t, "bob", "password123"))

		resp := app.postForm(t, "/delete/9999", nil)
		readBody(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
	})
}
