package middleware

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/config"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "aftercollage_session"
	// ContextKeySession is the context key for the signed-in *backend.Session
	ContextKeySession = "session"
	// ContextKeyGuard is the context key for the request's *services.AdminGuard
	ContextKeyGuard = "admin_guard"

	// NoticeAccessDenied is appended to the login redirect when a signed-in user was turned away
	NoticeAccessDenied = "access_denied"
)

// Guards keeps one mounted AdminGuard per signed-in session so that sign-outs and refreshes
// reach it through the backend's auth events
type Guards struct {
	backend backend.Backend
	log     *zap.Logger
	auditor *services.Auditor

	mu      sync.Mutex
	byToken map[string]*services.AdminGuard
}

func NewGuards(b backend.Backend, log *zap.Logger) *Guards {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guards{backend: b, log: log, byToken: make(map[string]*services.AdminGuard)}
}

// SetAuditor records turned-away sign-ins in the audit log
func (g *Guards) SetAuditor(a *services.Auditor) {
	g.auditor = a
}

// Mount runs a fresh check for token, replacing any guard already mounted for it
func (g *Guards) Mount(c echo.Context, token string) (*services.AdminGuard, services.GuardDecision) {
	g.Unmount(token)

	guard := services.NewAdminGuard(g.backend, g.log)
	guard.OnDenied(func(services.GuardDecision) { g.drop(guard) })

	d := guard.Mount(c.Request().Context(), token)
	if d.State != services.GuardAuthorized {
		guard.Unmount()
		return guard, d
	}

	g.mu.Lock()
	key := guard.Token()
	previous, replaced := g.byToken[key]
	g.byToken[key] = guard
	g.mu.Unlock()

	// A concurrent mount for the same session may have stored its guard first
	if replaced && previous != guard {
		previous.Unmount()
	}
	return guard, d
}

// alive reports whether token still resolves to a session. Sign-outs handled by
// another process never reach the mounted guard's subscription.
func (g *Guards) alive(c echo.Context, token string) bool {
	session, err := g.backend.GetSession(c.Request().Context(), token)
	if err != nil {
		g.log.Warn("session lookup failed", zap.Error(err))
		return false
	}
	return session != nil
}

// Lookup returns the guard mounted for token, re-keying it if its session was refreshed
func (g *Guards) Lookup(token string) *services.AdminGuard {
	g.mu.Lock()
	defer g.mu.Unlock()

	guard, ok := g.byToken[token]
	if !ok {
		return nil
	}
	if current := guard.Token(); current != token {
		delete(g.byToken, token)
		g.byToken[current] = guard
	}
	return guard
}

// Unmount drops the guard mounted for token, if any
func (g *Guards) Unmount(token string) {
	g.mu.Lock()
	guard, ok := g.byToken[token]
	delete(g.byToken, token)
	g.mu.Unlock()

	if ok {
		guard.Unmount()
	}
}

func (g *Guards) drop(guard *services.AdminGuard) {
	g.mu.Lock()
	for token, mounted := range g.byToken {
		if mounted == guard {
			delete(g.byToken, token)
		}
	}
	g.mu.Unlock()
	guard.Unmount()
}

// Prune unmounts guards that are no longer authorized or whose session has expired
func (g *Guards) Prune(now time.Time) int {
	var stale []*services.AdminGuard

	g.mu.Lock()
	for token, guard := range g.byToken {
		d := guard.Decision()
		if d.State != services.GuardAuthorized || d.Session == nil || (!d.Session.ExpiresAt.IsZero() && now.After(d.Session.ExpiresAt)) {
			delete(g.byToken, token)
			stale = append(stale, guard)
		}
	}
	g.mu.Unlock()

	for _, guard := range stale {
		guard.Unmount()
	}
	return len(stale)
}

// Len is the number of mounted guards
func (g *Guards) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byToken)
}

// RequireAdmin lets a request through only for an authorized admin session.
// With remount set every request re-runs the check; dashboard page loads use it.
// Other requests reuse the mounted guard's decision until the session expires.
func RequireAdmin(guards *Guards, remount bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return denyAdmin(c, services.GuardDecision{State: services.GuardDenied, Redirect: services.LoginPath})
			}
			token := cookie.Value

			var guard *services.AdminGuard
			var d services.GuardDecision
			if !remount {
				if guard = guards.Lookup(token); guard != nil {
					d = guard.Decision()
					if d.State != services.GuardAuthorized || d.Session == nil || time.Now().After(d.Session.ExpiresAt) {
						guard = nil
					} else if !guards.alive(c, token) {
						guards.Unmount(token)
						guard = nil
					} else {
						// The lookup may have refreshed the session
						d = guard.Decision()
					}
				}
			}
			if guard == nil {
				guard, d = guards.Mount(c, token)
			}

			if d.State != services.GuardAuthorized {
				if d.Notice != nil && guards.auditor != nil {
					guards.auditor.LogEvent(c.Request().Context(), auditActor(c), models.AuditActionDenied,
						"session", "", "Signed-in user without the admin role was signed out", nil, nil)
				}
				return denyAdmin(c, d)
			}

			// The check may have refreshed the session
			if d.Session.Token != token {
				SetSessionCookie(c, d.Session.Token, d.Session.ExpiresAt)
			}

			c.Set(ContextKeySession, d.Session)
			c.Set(ContextKeyGuard, guard)
			ctx := backend.WithAccessToken(c.Request().Context(), d.Session.Token)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func denyAdmin(c echo.Context, d services.GuardDecision) error {
	ClearSessionCookie(c)

	target := d.Redirect
	if target == "" {
		target = services.LoginPath
	}
	if d.Notice != nil {
		target += "?notice=" + url.QueryEscape(NoticeAccessDenied)
	}

	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusUnauthorized)
	}
	if wantsJSON(c) {
		body := map[string]interface{}{"redirect": target}
		if d.Notice != nil {
			body["notification"] = d.Notice
		}
		return c.JSON(http.StatusUnauthorized, body)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// GetCurrentSession retrieves the signed-in session from context
func GetCurrentSession(c echo.Context) *backend.Session {
	session, ok := c.Get(ContextKeySession).(*backend.Session)
	if !ok {
		return nil
	}
	return session
}

// GetGuard retrieves the request's admin guard from context
func GetGuard(c echo.Context) *services.AdminGuard {
	guard, ok := c.Get(ContextKeyGuard).(*services.AdminGuard)
	if !ok {
		return nil
	}
	return guard
}

func isProduction(c echo.Context) bool {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg.IsProduction()
	}
	return false
}

// SetSessionCookie stores token in the session cookie until expiresAt
func SetSessionCookie(c echo.Context, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}
