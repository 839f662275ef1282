package services

import (
	"context"
	"sync"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/metrics"
	"aftercollage_app_go/models"

	"go.uber.org/zap"
)

// LoginPath is where denied visitors are sent
const LoginPath = "/admin/login"

type GuardState int

const (
	GuardChecking GuardState = iota
	GuardAuthorized
	GuardDenied
)

func (s GuardState) String() string {
	switch s {
	case GuardAuthorized:
		return "authorized"
	case GuardDenied:
		return "denied"
	default:
		return "checking"
	}
}

// GuardDecision is the guard's state as seen by the dashboard
type GuardDecision struct {
	State   GuardState
	Session *backend.Session
	// Redirect is set when denied
	Redirect string
	// Notice is set when a signed-in user was turned away
	Notice *Notification
}

// AdminGuard decides whether a session may see the dashboard. It checks once per Mount and
// once per auth change that concerns its session; a sign-out seen through the subscription
// forces it to denied from any state.
type AdminGuard struct {
	backend backend.Backend
	log     *zap.Logger

	mu          sync.Mutex
	state       GuardState
	token       string
	session     *backend.Session
	notice      *Notification
	generation  uint64
	unsubscribe func()
	onDenied    func(GuardDecision)
}

func NewAdminGuard(b backend.Backend, log *zap.Logger) *AdminGuard {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminGuard{backend: b, log: log}
}

// OnDenied registers fn to run when an auth change forces the guard to denied
func (g *AdminGuard) OnDenied(fn func(GuardDecision)) {
	g.mu.Lock()
	g.onDenied = fn
	g.mu.Unlock()
}

// Mount subscribes to auth changes and checks token
func (g *AdminGuard) Mount(ctx context.Context, token string) GuardDecision {
	g.mu.Lock()
	g.token = token
	if g.unsubscribe == nil {
		g.unsubscribe = g.backend.OnAuthStateChange(g.handleAuthChange)
	}
	g.mu.Unlock()

	return g.check(ctx)
}

// Unmount drops the subscription. Results of checks still running are discarded.
func (g *AdminGuard) Unmount() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.generation++
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Decision returns the current state
func (g *AdminGuard) Decision() GuardDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decisionLocked()
}

// Token is the session token the guard currently follows
func (g *AdminGuard) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

func (g *AdminGuard) decisionLocked() GuardDecision {
	d := GuardDecision{State: g.state, Session: g.session, Notice: g.notice}
	if g.state == GuardDenied {
		d.Redirect = LoginPath
	}
	return d
}

func (g *AdminGuard) check(ctx context.Context) GuardDecision {
	g.mu.Lock()
	g.generation++
	gen := g.generation
	token := g.token
	g.state = GuardChecking
	g.mu.Unlock()

	session, err := g.backend.GetSession(ctx, token)
	if err != nil {
		g.log.Warn("session lookup failed", zap.Error(err))
		session = nil
	}
	if session == nil {
		d, _ := g.settle(gen, GuardDenied, nil, nil, "no_session")
		return d
	}

	isAdmin, err := HasAdminRole(backend.WithAccessToken(ctx, session.Token), g.backend, session.UserID)
	if err != nil {
		g.log.Warn("role lookup failed", zap.String("user_id", session.UserID), zap.Error(err))
	}
	if err != nil || !isAdmin {
		notice := Failure(MsgAccessDenied)
		// Settle before signing out so the resulting SIGNED_OUT finds the guard already denied
		d, current := g.settle(gen, GuardDenied, nil, &notice, "denied")
		if current {
			g.log.Info("non-admin signed out", zap.String("user_id", session.UserID))
			if err := g.backend.SignOut(ctx, session.Token); err != nil {
				g.log.Warn("sign out after denial failed", zap.Error(err))
			}
		}
		return d
	}

	d, _ := g.settle(gen, GuardAuthorized, session, nil, "authorized")
	return d
}

// settle applies a check result unless a newer check or forced denial superseded it
func (g *AdminGuard) settle(gen uint64, state GuardState, session *backend.Session, notice *Notification, outcome string) (GuardDecision, bool) {
	g.mu.Lock()
	if gen != g.generation {
		d := g.decisionLocked()
		g.mu.Unlock()
		return d, false
	}
	g.state = state
	g.session = session
	g.notice = notice
	if session != nil {
		g.token = session.Token
	}
	d := g.decisionLocked()
	g.mu.Unlock()

	metrics.RecordGuardDecision(outcome)
	return d, true
}

func (g *AdminGuard) handleAuthChange(change backend.AuthChange) {
	g.mu.Lock()
	if g.unsubscribe == nil || change.Token == "" || change.Token != g.token {
		g.mu.Unlock()
		return
	}

	if change.Session == nil {
		if g.state == GuardDenied {
			g.mu.Unlock()
			return
		}
		g.generation++
		g.state = GuardDenied
		g.session = nil
		g.notice = nil
		d := g.decisionLocked()
		fn := g.onDenied
		g.mu.Unlock()

		metrics.RecordGuardDecision("signed_out")
		if fn != nil {
			fn(d)
		}
		return
	}

	g.token = change.Session.Token
	g.mu.Unlock()
	g.check(context.Background())
}

// HasAdminRole reports whether user_roles grants userID the admin role
func HasAdminRole(ctx context.Context, store backend.Store, userID string) (bool, error) {
	var roles []models.UserRole
	err := store.Select(ctx, models.TableUserRoles, &roles, backend.Query{
		Filter:    map[string]interface{}{"user_id": userID, "role": models.RoleAdmin},
		Unordered: true,
		Limit:     1,
	})
	if err != nil {
		return false, err
	}
	return len(roles) > 0, nil
}
