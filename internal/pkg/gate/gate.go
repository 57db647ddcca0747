// Package gate holds the per-browser-session entitlement state that route
// protection reads.
package gate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/app/models"
	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
)

// DefaultFetchTimeout bounds a single entitlement query started by the gate.
const DefaultFetchTimeout = 10 * time.Second

// Checker answers "is this email entitled right now".
type Checker interface {
	Check(ctx context.Context, email string) (*entitlements.CheckResult, error)
}

// Session identifies the signed-in user the gate fetches for.
type Session struct {
	ID     string `json:"id"`
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// Snapshot is one consistent view of the gate. Err is set when the query
// itself failed, which is distinct from a successful "not entitled" answer.
type Snapshot struct {
	Session               *Session                  `json:"session"`
	HasActiveSubscription bool                      `json:"hasActiveSubscription"`
	Subscription          *models.EntitlementRecord `json:"subscription"`
	Loading               bool                      `json:"loading"`
	Err                   error                     `json:"-"`
	Error                 string                    `json:"error,omitempty"`
}

// Gate is safe for concurrent use. Every trigger bumps the generation, and a
// fetch only commits while its generation and session are still current.
type Gate struct {
	checker Checker
	timeout time.Duration

	mu      sync.Mutex
	gen     uint64
	state   Snapshot
	touched time.Time
}

func New(checker Checker) *Gate {
	return &Gate{checker: checker, timeout: DefaultFetchTimeout, touched: time.Now()}
}

// SessionEstablished replaces the session and starts a fetch for it. The
// returned channel is closed once that fetch has committed or been discarded.
func (g *Gate) SessionEstablished(ctx context.Context, s Session) <-chan struct{} {
	g.mu.Lock()
	gen := g.establishLocked(s)
	g.mu.Unlock()

	return g.startFetch(ctx, gen, s)
}

// EstablishIfEmpty behaves like SessionEstablished but only when the gate
// holds no session yet. It reports whether a fetch was started.
func (g *Gate) EstablishIfEmpty(ctx context.Context, s Session) (<-chan struct{}, bool) {
	g.mu.Lock()
	if g.state.Session != nil {
		g.mu.Unlock()
		return nil, false
	}
	gen := g.establishLocked(s)
	g.mu.Unlock()

	return g.startFetch(ctx, gen, s), true
}

func (g *Gate) establishLocked(s Session) uint64 {
	g.gen++
	sess := s
	g.state = Snapshot{Session: &sess, Loading: true}
	g.touched = time.Now()
	return g.gen
}

// SessionCleared drops all state immediately. Any in-flight fetch is discarded.
func (g *Gate) SessionCleared() {
	g.mu.Lock()
	g.gen++
	g.state = Snapshot{}
	g.touched = time.Now()
	g.mu.Unlock()
}

// RefreshRequested re-queries for the current session, keeping the last
// known answer visible while loading. Without a session it is a no-op.
func (g *Gate) RefreshRequested(ctx context.Context) <-chan struct{} {
	g.mu.Lock()
	if g.state.Session == nil {
		g.mu.Unlock()
		done := make(chan struct{})
		close(done)
		return done
	}
	g.gen++
	gen := g.gen
	sess := *g.state.Session
	g.state.Loading = true
	g.state.Err = nil
	g.state.Error = ""
	g.touched = time.Now()
	g.mu.Unlock()

	return g.startFetch(ctx, gen, sess)
}

// Snapshot returns a copy of the current state. A cached active answer whose
// period has ended reads as not entitled.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := g.state
	if snap.Session != nil {
		s := *snap.Session
		snap.Session = &s
	}
	if snap.HasActiveSubscription && snap.Subscription != nil && snap.Subscription.PeriodEnd != nil &&
		!snap.Subscription.PeriodEnd.After(time.Now()) {
		snap.HasActiveSubscription = false
	}
	return snap
}

func (g *Gate) touch() {
	g.mu.Lock()
	g.touched = time.Now()
	g.mu.Unlock()
}

func (g *Gate) lastTouched() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.touched
}

func (g *Gate) startFetch(ctx context.Context, gen uint64, sess Session) <-chan struct{} {
	done := make(chan struct{})
	// the fetch outlives the request that triggered it
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	go func() {
		defer close(done)
		defer cancel()
		res, err := g.checker.Check(fetchCtx, sess.Email)
		g.commit(gen, sess, res, err)
	}()
	return done
}

func (g *Gate) commit(gen uint64, sess Session, res *entitlements.CheckResult, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gen != g.gen || g.state.Session == nil || g.state.Session.ID != sess.ID {
		log.Debug().Str("session", sess.ID).Msg("[Gate] Discarding stale entitlement result")
		return
	}

	g.state.Loading = false
	if err != nil {
		log.Warn().Err(err).Str("email", sess.Email).Msg("[Gate] Entitlement check failed")
		g.state.HasActiveSubscription = false
		g.state.Subscription = nil
		g.state.Err = err
		g.state.Error = "entitlement_check_failed"
		return
	}
	g.state.Err = nil
	g.state.Error = ""
	g.state.HasActiveSubscription = res != nil && res.HasActiveSubscription
	if res != nil {
		g.state.Subscription = res.Subscription
	} else {
		g.state.Subscription = nil
	}
}
