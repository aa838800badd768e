package handler

import (
	"database/sql"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"minicms/internal/auth"
	"minicms/internal/middleware"
	"minicms/internal/render"
	"minicms/internal/store"
	"minicms/web"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Each pooled connection would otherwise see its own empty in-memory database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);
		CREATE INDEX idx_users_username ON users(username);

		CREATE TABLE pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			user_id INTEGER,
			ip_address TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testApp bundles a running test server over the full route tree.
type testApp struct {
	db     *sql.DB
	server *httptest.Server
	client *http.Client
}

// newTestApp wires the router the way the server binary does, minus the
// CSRF and rate-limiting middleware that would interfere with test clients.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testDB(t)

	sm := scs.New()
	sm.Lifetime = 24 * time.Hour

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("getting templates fs: %v", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("initializing renderer: %v", err)
	}

	authHandler := NewAuthHandler(db, renderer, sm, nil)
	pageHandler := NewPageHandler(db, renderer)
	userHandler := NewUserHandler(db, renderer)
	healthHandler := NewHealthHandler(db)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)

	r.Get(RouteHealth, healthHandler.Check)

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadUser(sm, db))
		r.Get(RouteRoot, pageHandler.Home)
	})

	r.Group(func(r chi.Router) {
		r.Get(RouteLogin, authHandler.LoginForm)
		r.Post(RouteLogin, authHandler.Login)
		r.Get(RouteLogout, authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(sm))
		r.Use(middleware.LoadUser(sm, db))
		r.Get(RouteSite, pageHandler.Site)
		r.Get(RoutePage, pageHandler.View)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(sm))
		r.Use(middleware.RequireAdmin(sm))
		r.Use(middleware.LoadUser(sm, db))
		r.Get(RouteAdmin, pageHandler.NewForm)
		r.Get(RouteAdd, pageHandler.NewForm)
		r.Post(RouteAdd, pageHandler.Create)
		r.Post(RouteDelete, pageHandler.Delete)
		r.Get(RouteAddUser, userHandler.NewForm)
		r.Post(RouteAddUser, userHandler.Create)
		r.Post(RouteDeleteUser, userHandler.Delete)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar: %v", err)
	}

	client := &http.Client{
		Jar: jar,
		// Redirects are asserted explicitly via the Location header
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{db: db, server: server, client: client}
}

// newTestClient returns a view of the app with its own cookie jar, for
// exercising two sessions against the same server.
func newTestClient(t *testing.T, app *testApp) *testApp {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar: %v", err)
	}

	return &testApp{
		db:     app.db,
		server: app.server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// createUser inserts a user with a real argon2id hash so logins work.
func (a *testApp) createUser(t *testing.T, username, password string, isAdmin bool) store.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	now := time.Now()
	result, err := a.db.Exec(
		`INSERT INTO users (username, password_hash, is_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		username, hash, isAdmin, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return store.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// get issues a GET request through the app's cookie-aware client.
func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := a.client.Get(a.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// postForm issues a form POST through the app's cookie-aware client.
func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := a.client.PostForm(a.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// login authenticates the client's session as the given user.
func (a *testApp) login(t *testing.T, username, password string) *http.Response {
	t.Helper()

	return a.postForm(t, RouteLogin, url.Values{
		"username": {username},
		"password": {password},
	})
}

// readBody drains and closes the response body.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(body)
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("status = %d; want %d", resp.StatusCode, want)
	}
}

// assertRedirect checks for a redirect to the expected location.
func assertRedirect(t *testing.T, resp *http.Response, wantStatus int, wantLocation string) {
	t.Helper()
	if resp.StatusCode != wantStatus {
		t.Errorf("status = %d; want %d", resp.StatusCode, wantStatus)
	}
	if loc := resp.Header.Get("Location"); loc != wantLocation {
		t.Errorf("Location = %q; want %q", loc, wantLocation)
	}
}

// assertContains checks that the body contains the expected substring.
func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("body does not contain %q", want)
	}
}
