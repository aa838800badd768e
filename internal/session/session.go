// Package session configures the cookie-backed session manager.
// Session state lives in the same SQLite file as the rest of the data,
// keyed by an opaque token held by the client.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys for the authenticated state. IsAdmin is snapshotted at login
// time and is not re-checked against the users table on each request.
const (
	KeyUserID  = "user_id"
	KeyIsAdmin = "is_admin"
)

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 24 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only

	return sm
}
