package session

import (
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/BizDesk/internal/pkg/cache"
	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
)

// Session keys for the signed-in user.
const (
	KeyAuthenticated = "authenticated"
	KeyUserID        = "user_id"
	KeyUserName      = "username"
	KeyUserEmail     = "email"
)

var sessionStore *session.Store

// NewSessionStore creates the app session store on the cache server (DB 1).
func NewSessionStore() *session.Store {
	sessionStore = session.New(session.Config{
		Storage:        cache.NewStorage(cache.SessionDB),
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

// UseStore replaces the process-wide store, e.g. with an in-memory one.
func UseStore(store *session.Store) {
	sessionStore = store
}

func GetSessionStore() *session.Store {
	return sessionStore
}
