package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/internal/pkg/constants"
	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
	"github.com/ManuelReschke/BizDesk/internal/pkg/session"
	"github.com/ManuelReschke/BizDesk/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the user context for every request. For a
// signed-in session whose gate holds no state yet (first request after a
// restart or page load) it starts the entitlement fetch.
func UserContextMiddleware(gates *gate.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session store on the OAuth routes.
		if strings.HasPrefix(c.Path(), constants.RouteOAuthPrefix) {
			return c.Next()
		}

		store := session.GetSessionStore()
		if store == nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}
		sess, err := store.Get(c)
		if err != nil {
			log.Warn().Err(err).Msg("[Session] Failed to load session")
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		userID, ok := sess.Get(session.KeyUserID).(uint)
		if !ok || userID == 0 {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		uc := usercontext.UserContext{
			UserID:     userID,
			IsLoggedIn: true,
			SessionID:  sess.ID(),
		}
		uc.Username, _ = sess.Get(session.KeyUserName).(string)
		uc.Email, _ = sess.Get(session.KeyUserEmail).(string)
		usercontext.SetUserContext(c, uc)

		if gates != nil && uc.Email != "" {
			gates.Get(uc.SessionID).EstablishIfEmpty(c.UserContext(),
				gate.Session{ID: uc.SessionID, UserID: uc.UserID, Email: uc.Email})
		}

		return c.Next()
	}
}
