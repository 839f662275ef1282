// Package handlers is the HTTP surface: the landing page and its form endpoints, admin
// sign-in, and the guarded submissions dashboard with its export routes.
package handlers

import (
	"time"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/config"
	"aftercollage_app_go/middleware"
	"aftercollage_app_go/services"
	"aftercollage_app_go/templates/pages"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Deps are the services the handlers are wired to
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Backend backend.Backend
	Intake  *services.Intake
	Reviews *services.ReviewStore
	Guards  *middleware.Guards
	Auditor *services.Auditor
	Storage services.StorageProvider
	Assets  *middleware.Assets
	Monitor *services.LoginMonitor

	FormLimiter  *middleware.RateLimiter
	LoginLimiter *middleware.RateLimiter
}

type Handlers struct {
	cfg     *config.Config
	log     *zap.Logger
	backend backend.Backend
	intake  *services.Intake
	reviews *services.ReviewStore
	guards  *middleware.Guards
	auditor *services.Auditor
	storage services.StorageProvider
	assets  *middleware.Assets
	monitor *services.LoginMonitor

	formLimiter  *middleware.RateLimiter
	loginLimiter *middleware.RateLimiter

	now func() time.Time
}

func New(d Deps) *Handlers {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.FormLimiter == nil {
		d.FormLimiter = middleware.NewPublicFormRateLimiter(nil)
	}
	if d.LoginLimiter == nil {
		d.LoginLimiter = middleware.NewLoginRateLimiter(nil)
	}
	return &Handlers{
		cfg:          d.Config,
		log:          d.Log,
		backend:      d.Backend,
		intake:       d.Intake,
		reviews:      d.Reviews,
		guards:       d.Guards,
		auditor:      d.Auditor,
		storage:      d.Storage,
		assets:       d.Assets,
		monitor:      d.Monitor,
		formLimiter:  d.FormLimiter,
		loginLimiter: d.LoginLimiter,
		now:          time.Now,
	}
}

func (h *Handlers) page(c echo.Context, title string) pages.Page {
	return pages.Page{
		Title:     title,
		Nonce:     middleware.GetNonce(c.Request().Context()),
		CSRFToken: middleware.GetCSRFToken(c),
		Asset:     h.assets.URL,
	}
}

// render writes a page with status
func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response().Writer)
}
