package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizDesk/app/models"
	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
	"github.com/ManuelReschke/BizDesk/internal/pkg/session"
	"github.com/ManuelReschke/BizDesk/internal/pkg/usercontext"
)

// gateWait bounds how long sign-in responses wait for the first entitlement answer.
const gateWait = 2 * time.Second

// signIn rotates the session id, stores the user and starts the entitlement fetch.
func signIn(c *fiber.Ctx, user *models.User) (gate.Snapshot, error) {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return gate.Snapshot{}, err
	}
	if deps.Gates != nil {
		deps.Gates.Remove(sess.ID())
	}
	if err := sess.Regenerate(); err != nil {
		return gate.Snapshot{}, err
	}
	// Save releases the session back to fiber's pool and clears its id.
	sid := sess.ID()

	sess.Set(session.KeyAuthenticated, true)
	sess.Set(session.KeyUserID, user.ID)
	sess.Set(session.KeyUserName, user.Name)
	sess.Set(session.KeyUserEmail, user.Email)
	if err := sess.Save(); err != nil {
		return gate.Snapshot{}, err
	}

	uc := usercontext.UserContext{
		UserID:     user.ID,
		Username:   user.Name,
		Email:      user.Email,
		IsLoggedIn: true,
		SessionID:  sid,
	}
	usercontext.SetUserContext(c, uc)

	if deps.Gates == nil {
		return gate.Snapshot{}, nil
	}
	g := deps.Gates.Get(uc.SessionID)
	done := g.SessionEstablished(c.UserContext(), gate.Session{ID: uc.SessionID, UserID: uc.UserID, Email: uc.Email})
	return waitForGate(c.UserContext(), g, done), nil
}

// waitForGate returns the snapshot once the fetch finished or the wait elapsed.
// A still-loading snapshot is a valid answer.
func waitForGate(ctx context.Context, g *gate.Gate, done <-chan struct{}) gate.Snapshot {
	timer := time.NewTimer(gateWait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}
	return g.Snapshot()
}

func currentGate(c *fiber.Ctx) (*gate.Gate, bool) {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn || deps.Gates == nil {
		return nil, false
	}
	return deps.Gates.Get(uc.SessionID), true
}
