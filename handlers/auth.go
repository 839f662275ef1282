package handlers

import (
	"errors"
	"net/http"
	"strings"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/metrics"
	"aftercollage_app_go/middleware"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"
	"aftercollage_app_go/templates/pages"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	loginTitle      = "Admin sign in | AfterCollage"
	noticeSignedOut = "signed_out"
	noticeNoData    = "no_data"
)

// LoginPage renders the admin sign-in form
func (h *Handlers) LoginPage(c echo.Context) error {
	view := pages.LoginView{Page: h.page(c, loginTitle)}
	switch c.QueryParam("notice") {
	case middleware.NoticeAccessDenied:
		n := services.Failure(services.MsgAccessDenied)
		view.Notice = &n
	case noticeSignedOut:
		n := services.Success(services.MsgSignedOut)
		view.Notice = &n
	}
	return render(c, http.StatusOK, pages.Login(view))
}

// Login signs in with email and password. The admin check itself runs on the next
// dashboard load.
func (h *Handlers) Login(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")

	if email == "" || password == "" {
		return h.loginFailed(c, email, http.StatusBadRequest, "Email and password are required")
	}

	ctx := backend.WithClient(c.Request().Context(), c.RealIP(), c.Request().UserAgent())
	session, err := h.backend.SignIn(ctx, email, password)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, backend.ErrInvalidCredentials) {
			if h.monitor != nil {
				h.monitor.TrackFailedLogin(c.RealIP())
			}
			return h.loginFailed(c, email, http.StatusUnauthorized, services.MsgInvalidLogin)
		}
		h.log.Error("sign in failed", zap.Error(err))
		return h.loginFailed(c, email, http.StatusBadGateway, services.MsgSubmitFailed)
	}
	metrics.RecordAuthAttempt(true)

	middleware.SetSessionCookie(c, session.Token, session.ExpiresAt)

	actor := middleware.GetAuditContext(c)
	actor.UserID = session.UserID
	actor.UserEmail = session.Email
	h.auditor.LogEvent(c.Request().Context(), actor, models.AuditActionLogin, "session", "", "Signed in", nil, nil)

	return redirect(c, "/admin")
}

func (h *Handlers) loginFailed(c echo.Context, email string, status int, message string) error {
	view := pages.LoginView{Page: h.page(c, loginTitle), Email: email, Error: message}
	return render(c, status, pages.Login(view))
}

// Logout ends the session and unmounts its guard
func (h *Handlers) Logout(c echo.Context) error {
	cookie, err := c.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		token := cookie.Value
		actor := middleware.GetAuditContext(c)
		if session, err := h.backend.GetSession(c.Request().Context(), token); err == nil && session != nil {
			actor.UserID = session.UserID
			actor.UserEmail = session.Email
		}

		h.guards.Unmount(token)
		if err := h.backend.SignOut(c.Request().Context(), token); err != nil {
			h.log.Warn("sign out failed", zap.Error(err))
		}
		if actor.UserID != "" {
			h.auditor.LogEvent(c.Request().Context(), actor, models.AuditActionLogout, "session", "", "Signed out", nil, nil)
		}
	}

	middleware.ClearSessionCookie(c)
	return redirect(c, services.LoginPath+"?notice="+noticeSignedOut)
}

// redirect sends htmx requests an HX-Redirect and everything else a 303
func redirect(c echo.Context, target string) error {
	if isHTMX(c) {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, target)
}
